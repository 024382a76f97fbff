// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Interview
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an interview is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Lifecycle updates (MarkStarted, MarkFinished) are conditional on the
// current status so that illegal transitions are rejected at the storage
// level even under concurrent callers; the service layer translates a
// zero-rows-affected result into the proper state error.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentwire/go-interview-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateInterview inserts a new Interview row with a freshly generated UUID
// primary key and unique candidate-facing link token. Status starts at
// not_started and all lifecycle timestamps are nil.
func CreateInterview(ctx context.Context, db *gorm.DB, iv *domain.Interview) (*domain.Interview, error) {
	iv.ID = uuid.NewString()
	iv.UniqueLink = uuid.NewString()
	iv.Status = domain.StatusNotStarted
	iv.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(iv).Error; err != nil {
		return nil, err
	}
	return iv, nil
}

// GetInterview fetches a single interview by its ID, or ErrNotFound.
func GetInterview(ctx context.Context, db *gorm.DB, id string) (*domain.Interview, error) {
	var iv domain.Interview
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&iv).Error
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

// GetInterviewByLink fetches a single interview by its candidate-facing link
// token, or ErrNotFound.
func GetInterviewByLink(ctx context.Context, db *gorm.DB, link string) (*domain.Interview, error) {
	var iv domain.Interview
	err := db.WithContext(ctx).
		Where("unique_link = ?", link).
		First(&iv).Error
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

// MarkStarted transitions an interview from not_started to started and stamps
// started_at. The update is conditional on the current status; it reports the
// number of rows affected so the caller can distinguish "missing" from
// "already started/finished".
func MarkStarted(ctx context.Context, db *gorm.DB, id string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Interview{}).
		Where("id = ? AND status = ?", id, domain.StatusNotStarted).
		Updates(map[string]any{
			"status":     domain.StatusStarted,
			"started_at": at,
		})
	return res.RowsAffected, res.Error
}

// MarkFinished transitions an interview to finished, stamping finished_at and
// the computed duration (nil when the interview was never started). The update
// is conditional on not already being finished; it reports rows affected.
func MarkFinished(ctx context.Context, db *gorm.DB, id string, at time.Time, duration *int) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Interview{}).
		Where("id = ? AND status <> ?", id, domain.StatusFinished).
		Updates(map[string]any{
			"status":          domain.StatusFinished,
			"finished_at":     at,
			"actual_duration": duration,
		})
	return res.RowsAffected, res.Error
}

// SetTranscriptPath records the path of the materialized transcript artifact.
// Returns ErrNotFound when the interview does not exist.
func SetTranscriptPath(ctx context.Context, db *gorm.DB, id, path string) error {
	res := db.WithContext(ctx).
		Model(&domain.Interview{}).
		Where("id = ?", id).
		Update("transcript_file_path", path)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountInterviews returns the total number of interviews for the given
// candidate. On DB error, it returns the error.
func CountInterviews(ctx context.Context, db *gorm.DB, candidateID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Interview{}).
		Where("candidate_id = ?", candidateID).
		Count(&total).Error
	return total, err
}

// ListInterviewsPage returns a paginated slice of interviews for a candidate,
// ordered by creation time descending. The caller computes offset and limit.
func ListInterviewsPage(ctx context.Context, db *gorm.DB, candidateID string, offset, limit int) ([]domain.Interview, error) {
	var out []domain.Interview
	err := db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
