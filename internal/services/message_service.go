// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the chat history of an interview. It validates inputs (role within the
// closed enum, non-empty bounded content), verifies the owning interview
// exists, and persists messages in insertion order. Messages are immutable
// once created; the service exposes ordered reads for both the REST listing
// endpoint and the transcript writer.
//
// Observability: multi-step methods are OpenTelemetry-instrumented; spans
// include interview identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/talentwire/go-interview-backend/internal/domain"
	"github.com/talentwire/go-interview-backend/internal/repo"
)

// MessageService coordinates chat message persistence for interviews.
type MessageService struct {
	DB *gorm.DB

	// MaxContentRunes caps stored message content by rune length. Zero
	// disables the cap.
	MaxContentRunes int
}

// Append validates and persists a single chat message for an interview,
// returning the canonical persisted form (with assigned id and timestamp).
//
// Validation:
//   - role must be within the closed enum, otherwise ErrInvalidRole;
//   - content must be non-empty after trimming, otherwise ErrEmptyContent;
//   - content must fit MaxContentRunes when configured, otherwise ErrContentTooLong;
//   - the interview must exist, otherwise ErrInterviewNotFound.
func (s *MessageService) Append(ctx context.Context, interviewID string, role domain.MessageRole, content string) (*domain.ChatMessage, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Append",
		trace.WithAttributes(
			attribute.String("interview.id", interviewID),
			attribute.String("message.role", string(role)),
		),
	)
	defer span.End()

	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return nil, ErrContentTooLong
	}

	if _, err := repo.GetInterview(ctx, s.DB, interviewID); err != nil {
		return nil, ErrInterviewNotFound
	}

	var msg *domain.ChatMessage
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(tx, interviewID, role, content)
		if err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// List returns the full ordered message history of an interview
// (timestamp ascending). Used by the transcript writer and the relay
// bootstrap; prefer ListPage for client-facing reads.
func (s *MessageService) List(ctx context.Context, interviewID string) ([]domain.ChatMessage, error) {
	if _, err := repo.GetInterview(ctx, s.DB, interviewID); err != nil {
		return nil, ErrInterviewNotFound
	}
	return repo.ListMessages(s.DB.WithContext(ctx), interviewID, 0)
}

// ListPage returns paginated messages for an interview in ascending
// timestamp order, plus the total count.
func (s *MessageService) ListPage(ctx context.Context, interviewID string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("interview.id", interviewID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := repo.GetInterview(ctx, s.DB, interviewID); err != nil {
		return nil, 0, ErrInterviewNotFound
	}

	total, err := repo.CountMessages(s.DB.WithContext(ctx), interviewID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}

	items, err := repo.ListMessagesPage(s.DB.WithContext(ctx), interviewID, offset, pageSize)
	return items, total, err
}
