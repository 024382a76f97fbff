// Package services – InterviewService
//
// This file implements the InterviewService, which owns the interview
// lifecycle: creation with a fresh candidate-facing link token, the strict
// forward-only status machine (not_started → started → finished), duration
// accounting, and transcript materialization on finish.
//
// The finish operation deliberately decouples lifecycle durability from
// transcript durability: the status transition is committed first, and a
// transcript write failure is reported to the caller without rolling the
// transition back.
//
// Service-level errors (e.g., ErrInterviewNotFound, ErrAlreadyStarted) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/talentwire/go-interview-backend/internal/domain"
)

// InterviewRepo defines the repository contract required by InterviewService.
// Implementations are responsible for persistence of interview aggregates.
type InterviewRepo interface {
	// CreateInterview inserts a new interview row with generated identity.
	CreateInterview(ctx context.Context, db *gorm.DB, iv *domain.Interview) (*domain.Interview, error)

	// GetInterview fetches an interview by surrogate ID.
	GetInterview(ctx context.Context, db *gorm.DB, id string) (*domain.Interview, error)

	// GetInterviewByLink fetches an interview by candidate-facing link token.
	GetInterviewByLink(ctx context.Context, db *gorm.DB, link string) (*domain.Interview, error)

	// MarkStarted conditionally transitions not_started → started.
	MarkStarted(ctx context.Context, db *gorm.DB, id string, at time.Time) (int64, error)

	// MarkFinished conditionally transitions a non-finished interview to finished.
	MarkFinished(ctx context.Context, db *gorm.DB, id string, at time.Time, duration *int) (int64, error)

	// SetTranscriptPath records the materialized transcript artifact path.
	SetTranscriptPath(ctx context.Context, db *gorm.DB, id, path string) error

	// ListMessages returns the full ordered message history of an interview.
	ListMessages(db *gorm.DB, interviewID string, limit int) ([]domain.ChatMessage, error)
}

// TranscriptWriter materializes interview transcripts into durable artifacts.
// Implemented by transcript.Writer; abstracted here so Finish can be tested
// without touching the filesystem.
type TranscriptWriter interface {
	Write(iv *domain.Interview, messages []domain.ChatMessage) (jsonPath, textPath string, err error)
}

// CreateInterviewSpec carries the client-supplied fields for a new interview.
type CreateInterviewSpec struct {
	CandidateName       string
	CandidateID         string
	Position            string
	RecommendedDuration int // minutes
	KnowledgeBase       *string
	Description         *string
}

// StatusSnapshot is the read-only lifecycle view returned by Status.
type StatusSnapshot struct {
	InterviewID    string                 `json:"interview_id"`
	Status         domain.InterviewStatus `json:"status"`
	StartedAt      *time.Time             `json:"started_at,omitempty"`
	FinishedAt     *time.Time             `json:"finished_at,omitempty"`
	ActualDuration *int                   `json:"actual_duration,omitempty"`
}

// FinishResult reports the outcome of a finish transition. TranscriptErr is
// non-nil when the lifecycle transition committed but artifact materialization
// failed; callers must surface it without treating the finish as failed.
type FinishResult struct {
	Interview     *domain.Interview
	JSONPath      string
	TextPath      string
	TranscriptErr error
}

// InterviewService provides interview lifecycle operations.
type InterviewService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the interview repository used by this service.
	Repo InterviewRepo
	// Transcripts materializes artifacts on finish. May be nil in tests that
	// do not exercise Finish.
	Transcripts TranscriptWriter
}

// NewInterviewService constructs an InterviewService.
func NewInterviewService(db *gorm.DB, r InterviewRepo, tw TranscriptWriter) *InterviewService {
	return &InterviewService{DB: db, Repo: r, Transcripts: tw}
}

// Create allocates a new interview with a fresh opaque link token. Required
// fields are validated; optional free-text fields are passed through trimmed.
func (s *InterviewService) Create(ctx context.Context, spec CreateInterviewSpec) (*domain.Interview, error) {
	tr := otel.Tracer("services/InterviewService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("interview.position", spec.Position)),
	)
	defer span.End()

	if strings.TrimSpace(spec.CandidateName) == "" || strings.TrimSpace(spec.CandidateID) == "" {
		return nil, ErrMissingCandidate
	}
	if strings.TrimSpace(spec.Position) == "" {
		return nil, ErrMissingPosition
	}
	if spec.RecommendedDuration < 1 {
		return nil, ErrInvalidDuration
	}

	iv := &domain.Interview{
		CandidateName:       strings.TrimSpace(spec.CandidateName),
		CandidateID:         strings.TrimSpace(spec.CandidateID),
		Position:            strings.TrimSpace(spec.Position),
		RecommendedDuration: spec.RecommendedDuration,
		KnowledgeBase:       spec.KnowledgeBase,
		Description:         spec.Description,
	}
	return s.Repo.CreateInterview(ctx, s.DB, iv)
}

// GetByID returns the interview with the given surrogate ID.
func (s *InterviewService) GetByID(ctx context.Context, id string) (*domain.Interview, error) {
	iv, err := s.Repo.GetInterview(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInterviewNotFound
		}
		return nil, err
	}
	return iv, nil
}

// GetByLink returns the interview with the given candidate-facing link token.
func (s *InterviewService) GetByLink(ctx context.Context, link string) (*domain.Interview, error) {
	iv, err := s.Repo.GetInterviewByLink(ctx, s.DB, link)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInterviewNotFound
		}
		return nil, err
	}
	return iv, nil
}

// Start transitions an interview from not_started to started, stamping
// started_at exactly once. Re-starting is rejected: ErrAlreadyStarted for a
// running interview, ErrAlreadyFinished for a finished one.
func (s *InterviewService) Start(ctx context.Context, id string) (*domain.Interview, error) {
	tr := otel.Tracer("services/InterviewService")
	ctx, span := tr.Start(ctx, "Start",
		trace.WithAttributes(attribute.String("interview.id", id)),
	)
	defer span.End()

	iv, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch iv.Status {
	case domain.StatusStarted:
		return nil, ErrAlreadyStarted
	case domain.StatusFinished:
		return nil, ErrAlreadyFinished
	}

	now := time.Now().UTC()
	rows, err := s.Repo.MarkStarted(ctx, s.DB, id, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Lost a race with a concurrent start/finish; report on current state.
		return nil, s.transitionConflict(ctx, id)
	}
	iv.Status = domain.StatusStarted
	iv.StartedAt = &now
	return iv, nil
}

// Finish transitions an interview to finished, computes the actual duration
// in whole seconds (nil when the interview was never started), and then
// materializes the transcript artifacts. The status transition is committed
// regardless of transcript outcome; a write failure is reported via
// FinishResult.TranscriptErr.
func (s *InterviewService) Finish(ctx context.Context, id string) (*FinishResult, error) {
	tr := otel.Tracer("services/InterviewService")
	ctx, span := tr.Start(ctx, "Finish",
		trace.WithAttributes(attribute.String("interview.id", id)),
	)
	defer span.End()

	iv, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv.Status == domain.StatusFinished {
		return nil, ErrAlreadyFinished
	}

	now := time.Now().UTC()
	var duration *int
	if iv.StartedAt != nil {
		d := int(now.Sub(*iv.StartedAt).Seconds())
		if d < 0 {
			d = 0
		}
		duration = &d
	}

	rows, err := s.Repo.MarkFinished(ctx, s.DB, id, now, duration)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, s.transitionConflict(ctx, id)
	}
	iv.Status = domain.StatusFinished
	iv.FinishedAt = &now
	iv.ActualDuration = duration

	res := &FinishResult{Interview: iv}
	if s.Transcripts == nil {
		return res, nil
	}

	messages, err := s.Repo.ListMessages(s.DB.WithContext(ctx), id, 0)
	if err != nil {
		res.TranscriptErr = err
		return res, nil
	}
	jsonPath, textPath, err := s.Transcripts.Write(iv, messages)
	if err != nil {
		res.TranscriptErr = err
		return res, nil
	}
	res.JSONPath = jsonPath
	res.TextPath = textPath
	if err := s.Repo.SetTranscriptPath(ctx, s.DB, id, jsonPath); err != nil {
		res.TranscriptErr = err
		return res, nil
	}
	iv.TranscriptFilePath = &jsonPath
	return res, nil
}

// Status returns the current lifecycle snapshot for an interview.
func (s *InterviewService) Status(ctx context.Context, id string) (*StatusSnapshot, error) {
	iv, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusSnapshot{
		InterviewID:    iv.ID,
		Status:         iv.Status,
		StartedAt:      iv.StartedAt,
		FinishedAt:     iv.FinishedAt,
		ActualDuration: iv.ActualDuration,
	}, nil
}

// transitionConflict re-reads the interview after a zero-row conditional
// update and maps the observed state to the matching sentinel error.
func (s *InterviewService) transitionConflict(ctx context.Context, id string) error {
	iv, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if iv.Status == domain.StatusFinished {
		return ErrAlreadyFinished
	}
	return ErrAlreadyStarted
}
