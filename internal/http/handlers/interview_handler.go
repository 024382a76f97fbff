// Interview HTTP handlers.
//
// This file exposes REST endpoints for the interview lifecycle:
//   - POST  /interviews                 (create, returns candidate link)
//   - GET   /interviews/{link}          (resolve by candidate link token)
//   - PATCH /interviews/{id}/start      (not_started → started)
//   - PATCH /interviews/{id}/finish     (→ finished, writes transcript)
//   - GET   /interviews/{id}/status     (lifecycle snapshot)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Lifecycle conflicts surface as
// 409 with a state-specific error code so clients can distinguish a re-start
// from a re-finish.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/talentwire/go-interview-backend/internal/domain"
	"github.com/talentwire/go-interview-backend/internal/relay"
	"github.com/talentwire/go-interview-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// InterviewService defines interview lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type InterviewService interface {
	// Create allocates a new interview with a fresh candidate link token.
	Create(ctx context.Context, spec services.CreateInterviewSpec) (*domain.Interview, error)
	// GetByID fetches an interview by surrogate ID.
	GetByID(ctx context.Context, id string) (*domain.Interview, error)
	// GetByLink fetches an interview by candidate-facing link token.
	GetByLink(ctx context.Context, link string) (*domain.Interview, error)
	// Start transitions not_started → started, stamping started_at once.
	Start(ctx context.Context, id string) (*domain.Interview, error)
	// Finish transitions to finished and materializes transcript artifacts.
	Finish(ctx context.Context, id string) (*services.FinishResult, error)
	// Status returns the read-only lifecycle snapshot.
	Status(ctx context.Context, id string) (*services.StatusSnapshot, error)
}

// MessageService defines chat message operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MessageService interface {
	// Append validates and persists one message for an interview.
	Append(ctx context.Context, interviewID string, role domain.MessageRole, content string) (*domain.ChatMessage, error)
	// List returns the full ordered message history.
	List(ctx context.Context, interviewID string) ([]domain.ChatMessage, error)
	// ListPage returns a page of messages and the total count.
	ListPage(ctx context.Context, interviewID string, page, pageSize int) ([]domain.ChatMessage, int64, error)
}

// SpeechService defines the speech-recognition operation consumed by HTTP
// handlers.
type SpeechService interface {
	// Transcribe converts audio bytes to text with language detection.
	Transcribe(ctx context.Context, audio []byte, language string) (services.TranscriptionResult, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for interviews, chat messages, and speech.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	interviewSvc InterviewService
	msgSvc       MessageService
	speechSvc    SpeechService

	// relayReg fans persisted messages out to live WebSocket subscribers.
	relayReg *relay.Registry

	// linkBase is the public frontend origin used to build candidate links.
	linkBase string
}

// New constructs and returns a Handlers instance bound to the given services.
func New(interviewSvc InterviewService, msgSvc MessageService, speechSvc SpeechService, relayReg *relay.Registry, linkBase string) *Handlers {
	return &Handlers{
		interviewSvc: interviewSvc,
		msgSvc:       msgSvc,
		speechSvc:    speechSvc,
		relayReg:     relayReg,
		linkBase:     strings.TrimRight(linkBase, "/"),
	}
}

//
// DTOs
//

// CreateInterviewRequest is the JSON payload for scheduling an interview.
type CreateInterviewRequest struct {
	// CandidateName is the display name of the interviewee.
	CandidateName string `json:"candidate_name" binding:"required,min=1,max=255" example:"Ada Lovelace"`
	// CandidateID identifies the candidate in the recruiting system.
	CandidateID string `json:"candidate_id" binding:"required,min=1,max=255" example:"cand-42"`
	// Position is the role the candidate is interviewing for.
	Position string `json:"position" binding:"required,min=1,max=255" example:"Backend Engineer"`
	// RecommendedDuration is the planned interview length in minutes.
	RecommendedDuration int `json:"recommended_duration" binding:"required,min=1" example:"30"`
	// KnowledgeBase optionally seeds the interviewer with domain context.
	KnowledgeBase *string `json:"knowledge_base,omitempty"`
	// Description optionally describes the interview focus.
	Description *string `json:"description,omitempty"`
}

// CreateInterviewResponse wraps the created interview and its candidate link.
type CreateInterviewResponse struct {
	Interview     *domain.Interview `json:"interview"`
	InterviewLink string            `json:"interview_link" example:"https://interviews.example.com/interview/141add05-4415-4938-b5a1-17e0d3171aff"`
}

// FinishInterviewResponse reports a committed finish transition. When the
// transcript could not be written, TranscriptError carries the reason while
// the finish itself still succeeds.
type FinishInterviewResponse struct {
	Interview       *domain.Interview `json:"interview"`
	TranscriptJSON  string            `json:"transcript_json,omitempty"`
	TranscriptText  string            `json:"transcript_text,omitempty"`
	TranscriptError string            `json:"transcript_error,omitempty"`
}

//
// Handlers
//

// CreateInterview godoc
// @ID          createInterview
// @Summary     Schedule a new interview
// @Description Creates an interview and returns it together with the candidate-facing link.
// @Tags        Interviews
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateInterviewRequest  true  "Interview payload"
//
// @Success     201  {object}  handlers.CreateInterviewResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /interviews [post]
func (h *Handlers) CreateInterview(c *gin.Context) {
	var req CreateInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	iv, err := h.interviewSvc.Create(c.Request.Context(), services.CreateInterviewSpec{
		CandidateName:       req.CandidateName,
		CandidateID:         req.CandidateID,
		Position:            req.Position,
		RecommendedDuration: req.RecommendedDuration,
		KnowledgeBase:       req.KnowledgeBase,
		Description:         req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingCandidate),
			errors.Is(err, services.ErrMissingPosition),
			errors.Is(err, services.ErrInvalidDuration):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusCreated, CreateInterviewResponse{
		Interview:     iv,
		InterviewLink: h.interviewLink(iv.UniqueLink),
	})
}

// GetInterviewByLink godoc
// @ID          getInterviewByLink
// @Summary     Resolve an interview by candidate link
// @Description Returns the interview addressed by its opaque candidate link token.
// @Tags        Interviews
// @Produce     json
//
// @Param       id  path  string  true  "Candidate link token"  format(uuid)
//
// @Success     200  {object}  domain.Interview
// @Failure     404  {object}  handlers.ErrorResponse  "Interview not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /interviews/{id} [get]
func (h *Handlers) GetInterviewByLink(c *gin.Context) {
	// The :id segment carries the link token here; Gin requires one wildcard
	// name for the whole /interviews subtree.
	iv, err := h.interviewSvc.GetByLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrInterviewNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "interview not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, iv)
}

// StartInterview godoc
// @ID          startInterview
// @Summary     Start an interview
// @Description Transitions the interview to started and stamps started_at exactly once.
// @Tags        Interviews
// @Produce     json
//
// @Param       id  path  string  true  "Interview ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Interview
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Interview not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already started or finished"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /interviews/{id}/start [patch]
func (h *Handlers) StartInterview(c *gin.Context) {
	id, okID := interviewID(c)
	if !okID {
		return
	}

	iv, err := h.interviewSvc.Start(c.Request.Context(), id)
	if err != nil {
		failLifecycle(c, err)
		return
	}
	ok(c, http.StatusOK, iv)
}

// FinishInterview godoc
// @ID          finishInterview
// @Summary     Finish an interview
// @Description Transitions the interview to finished, computes the actual duration, and writes transcript artifacts. A transcript write failure does not undo the finish; it is reported in the response body.
// @Tags        Interviews
// @Produce     json
//
// @Param       id  path  string  true  "Interview ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.FinishInterviewResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Interview not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already finished"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /interviews/{id}/finish [patch]
func (h *Handlers) FinishInterview(c *gin.Context) {
	id, okID := interviewID(c)
	if !okID {
		return
	}

	res, err := h.interviewSvc.Finish(c.Request.Context(), id)
	if err != nil {
		failLifecycle(c, err)
		return
	}

	// Tell live subscribers the session is over, then drop the room.
	if h.relayReg != nil {
		h.relayReg.Publish(id, nil, relay.Frame{Type: relay.FrameSystem, Detail: "interview finished"})
		h.relayReg.Close(id)
	}

	resp := FinishInterviewResponse{
		Interview:      res.Interview,
		TranscriptJSON: res.JSONPath,
		TranscriptText: res.TextPath,
	}
	if res.TranscriptErr != nil {
		resp.TranscriptError = res.TranscriptErr.Error()
	}
	ok(c, http.StatusOK, resp)
}

// GetInterviewStatus godoc
// @ID          getInterviewStatus
// @Summary     Get interview lifecycle status
// @Description Returns the current status, timestamps, and actual duration of an interview.
// @Tags        Interviews
// @Produce     json
//
// @Param       id  path  string  true  "Interview ID (UUID)"  format(uuid)
//
// @Success     200  {object}  services.StatusSnapshot
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Interview not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /interviews/{id}/status [get]
func (h *Handlers) GetInterviewStatus(c *gin.Context) {
	id, okID := interviewID(c)
	if !okID {
		return
	}

	snap, err := h.interviewSvc.Status(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrInterviewNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "interview not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, snap)
}

//
// Helpers
//

// interviewID validates the :id path parameter as a UUID, failing the request
// itself when malformed.
func interviewID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "interview id must be a UUID")
		return "", false
	}
	return id, true
}

// failLifecycle maps lifecycle service errors onto HTTP results.
func failLifecycle(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInterviewNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "interview not found")
	case errors.Is(err, services.ErrAlreadyStarted):
		fail(c, http.StatusConflict, ErrCodeAlreadyStarted, err.Error())
	case errors.Is(err, services.ErrAlreadyFinished):
		fail(c, http.StatusConflict, ErrCodeAlreadyFinished, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// interviewLink builds the candidate-facing URL for a link token.
func (h *Handlers) interviewLink(link string) string {
	if h.linkBase == "" {
		return fmt.Sprintf("/interview/%s", link)
	}
	return fmt.Sprintf("%s/interview/%s", h.linkBase, link)
}
