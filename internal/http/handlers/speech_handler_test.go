package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/talentwire/go-interview-backend/internal/services"
)

// multipartAudio builds a multipart body with an "audio" file part and an
// optional language field.
func multipartAudio(t *testing.T, audio []byte, language string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(audio); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			t.Fatalf("write language: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func newSpeechRouter(t *testing.T, spSvc SpeechService) (*gin.Engine, *services.InterviewService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	ivSvc := services.NewInterviewService(db, testInterviewRepo{}, nil)
	h := newTestHandlers(ivSvc, stubMsgSvc{}, spSvc)
	r := gin.New()
	r.POST("/speech/transcribe/:id", h.Transcribe)
	r.GET("/speech/health", h.SpeechHealth)
	return r, ivSvc
}

func TestTranscribe_Success(t *testing.T) {
	var gotAudio []byte
	var gotLang string
	stub := stubSpeechSvc{
		transcribe: func(_ context.Context, audio []byte, language string) (services.TranscriptionResult, error) {
			gotAudio, gotLang = audio, language
			return services.TranscriptionResult{Text: "hello world", Language: "en", Confidence: -0.3}, nil
		},
	}
	r, ivSvc := newSpeechRouter(t, stub)
	iv := seedHandlerInterview(t, ivSvc)

	body, contentType := multipartAudio(t, []byte("RIFFfakewav"), "en")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/speech/transcribe/"+iv.ID, body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("transcribe -> %d body=%s", w.Code, w.Body.String())
	}
	var out TranscribeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Text != "hello world" || out.Language != "en" || out.InterviewID != iv.ID {
		t.Fatalf("unexpected response: %#v", out)
	}
	if string(gotAudio) != "RIFFfakewav" || gotLang != "en" {
		t.Fatalf("backend inputs: audio=%q lang=%q", gotAudio, gotLang)
	}
}

func TestTranscribe_MissingFileAndUnknownInterview(t *testing.T) {
	r, ivSvc := newSpeechRouter(t, stubSpeechSvc{})
	iv := seedHandlerInterview(t, ivSvc)

	// No multipart body -> 400
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/speech/transcribe/"+iv.ID, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing file -> %d", w.Code)
	}

	// Unknown interview -> 404
	body, contentType := multipartAudio(t, []byte("x"), "")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/speech/transcribe/"+uuid.NewString(), body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown interview -> %d", w.Code)
	}

	// Malformed id -> 400
	body, contentType = multipartAudio(t, []byte("x"), "")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/speech/transcribe/not-a-uuid", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed id -> %d", w.Code)
	}
}

func TestTranscribe_BackendFailure(t *testing.T) {
	stub := stubSpeechSvc{
		transcribe: func(context.Context, []byte, string) (services.TranscriptionResult, error) {
			return services.TranscriptionResult{}, errors.New("model unavailable")
		},
	}
	r, ivSvc := newSpeechRouter(t, stub)
	iv := seedHandlerInterview(t, ivSvc)

	body, contentType := multipartAudio(t, []byte("x"), "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/speech/transcribe/"+iv.ID, body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("backend failure -> %d", w.Code)
	}
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Code != ErrCodeTranscribeFailed {
		t.Fatalf("error code = %q err=%v", e.Code, err)
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	stub := stubSpeechSvc{
		transcribe: func(context.Context, []byte, string) (services.TranscriptionResult, error) {
			return services.TranscriptionResult{}, services.ErrEmptyAudio
		},
	}
	r, ivSvc := newSpeechRouter(t, stub)
	iv := seedHandlerInterview(t, ivSvc)

	body, contentType := multipartAudio(t, nil, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/speech/transcribe/"+iv.ID, body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty audio -> %d", w.Code)
	}
}

func TestSpeechHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Real pool reports its worker count.
	db := newHandlerDB(t)
	ivSvc := services.NewInterviewService(db, testInterviewRepo{}, nil)
	pool := services.NewSpeechService(stubSpeechSvc{}, 3)
	h := newTestHandlers(ivSvc, stubMsgSvc{}, pool)
	r := gin.New()
	r.GET("/speech/health", h.SpeechHealth)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/speech/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health -> %d", w.Code)
	}
	var out SpeechHealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Status != "ok" || out.Workers != 3 {
		t.Fatalf("unexpected health: %#v", out)
	}

	// Unconfigured adapter.
	h2 := New(ivSvc, stubMsgSvc{}, nil, nil, "")
	r2 := gin.New()
	r2.GET("/speech/health", h2.SpeechHealth)
	w = httptest.NewRecorder()
	r2.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/speech/health", nil))
	var out2 SpeechHealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out2); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out2.Status != "unconfigured" {
		t.Fatalf("unconfigured status = %q", out2.Status)
	}
}
