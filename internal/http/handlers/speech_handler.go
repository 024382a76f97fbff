// Speech recognition HTTP handlers.
//
// This file exposes the speech-to-text surface:
//   - POST /speech/transcribe/{id}  (multipart audio upload → transcription)
//   - GET  /speech/health           (adapter readiness)
//
// The upload size cap is enforced here at the edge; concurrency of the model
// backend is bounded inside SpeechService.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/talentwire/go-interview-backend/internal/services"
)

// maxAudioBytes caps a single transcription upload (25 MB, the Whisper API
// file limit).
const maxAudioBytes = 25 << 20

// TranscribeResponse is the JSON envelope for a transcription result.
type TranscribeResponse struct {
	InterviewID string  `json:"interview_id"`
	Text        string  `json:"text"`
	Language    string  `json:"language" example:"en"`
	Confidence  float64 `json:"confidence" example:"-0.21"`
}

// SpeechHealthResponse reports the adapter's readiness and pool size.
type SpeechHealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Workers int    `json:"workers,omitempty" example:"2"`
}

// Transcribe godoc
// @ID          transcribeAudio
// @Summary     Transcribe candidate audio
// @Description Accepts a multipart "audio" file plus an optional "language" hint and returns the recognized text with detected language and confidence.
// @Tags        Speech
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       id        path      string  true   "Interview ID (UUID)"  format(uuid)
// @Param       audio     formData  file    true   "Audio file (wav/webm/mp3, max 25 MB)"
// @Param       language  formData  string  false  "ISO-639-1 language hint"  example(en)
//
// @Success     200  {object}  handlers.TranscribeResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Interview not found"
// @Failure     413  {object}  handlers.ErrorResponse  "Payload too large"
// @Failure     502  {object}  handlers.ErrorResponse  "Recognition backend failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Speech recognition not configured"
// @Router      /speech/transcribe/{id} [post]
func (h *Handlers) Transcribe(c *gin.Context) {
	ctx := c.Request.Context()
	if h.speechSvc == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeTranscribeFailed, "speech recognition is not configured")
		return
	}
	id, okID := interviewID(c)
	if !okID {
		return
	}

	if _, err := h.interviewSvc.GetByID(ctx, id); err != nil {
		if errors.Is(err, services.ErrInterviewNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "interview not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field 'audio' required")
		return
	}
	defer file.Close()

	if header.Size > maxAudioBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest,
			fmt.Sprintf("audio exceeds %d bytes", maxAudioBytes))
		return
	}

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes+1))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "failed to read audio upload")
		return
	}
	if len(audio) > maxAudioBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest,
			fmt.Sprintf("audio exceeds %d bytes", maxAudioBytes))
		return
	}

	language := strings.TrimSpace(c.PostForm("language"))

	res, err := h.speechSvc.Transcribe(ctx, audio, language)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyAudio):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request cancelled")
		default:
			fail(c, http.StatusBadGateway, ErrCodeTranscribeFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, TranscribeResponse{
		InterviewID: id,
		Text:        res.Text,
		Language:    res.Language,
		Confidence:  res.Confidence,
	})
}

// SpeechHealth godoc
// @ID          speechHealth
// @Summary     Speech adapter health
// @Description Reports whether the speech-recognition adapter is configured and its worker pool size.
// @Tags        Speech
// @Produce     json
//
// @Success     200  {object}  handlers.SpeechHealthResponse
// @Router      /speech/health [get]
func (h *Handlers) SpeechHealth(c *gin.Context) {
	resp := SpeechHealthResponse{Status: "ok"}
	if h.speechSvc == nil {
		resp.Status = "unconfigured"
		ok(c, http.StatusOK, resp)
		return
	}
	if svc, okSvc := h.speechSvc.(*services.SpeechService); okSvc {
		resp.Workers = svc.Workers()
	}
	ok(c, http.StatusOK, resp)
}
