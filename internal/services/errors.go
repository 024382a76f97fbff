// Package services defines the business logic for interviews, chat messages,
// and speech recognition. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Interview lifecycle errors.
var (
	// ErrInterviewNotFound indicates that the requested interview does not exist.
	ErrInterviewNotFound = errors.New("interview not found")

	// ErrMissingCandidate is returned when an interview is created without a
	// candidate name or candidate id.
	ErrMissingCandidate = errors.New("candidate name and id are required")

	// ErrMissingPosition is returned when an interview is created without a
	// position.
	ErrMissingPosition = errors.New("position is required")

	// ErrInvalidDuration is returned when the recommended duration is not a
	// positive number of minutes.
	ErrInvalidDuration = errors.New("recommended duration must be at least 1 minute")

	// ErrAlreadyStarted is returned when start is invoked on an interview that
	// has already left the not_started state. The lifecycle is a strict
	// forward-only state machine; re-starting is rejected rather than
	// overwriting the original start timestamp.
	ErrAlreadyStarted = errors.New("interview already started")

	// ErrAlreadyFinished is returned when start or finish is invoked on an
	// interview that has already finished. Finishing twice would produce a
	// second transcript artifact, so re-finish is rejected.
	ErrAlreadyFinished = errors.New("interview already finished")
)

// Chat message errors.
var (
	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidRole is returned when a message carries a role outside the
	// closed set {ai_hr, candidate, recruiter}.
	ErrInvalidRole = errors.New("role must be one of: ai_hr, candidate, recruiter")

	// ErrEmptyContent is returned when a request to append a message contains
	// no content.
	ErrEmptyContent = errors.New("content is empty")

	// ErrContentTooLong is returned when a message exceeds the maximum
	// configured length limit.
	ErrContentTooLong = errors.New("content too long")
)

// Speech recognition errors.
var (
	// ErrEmptyAudio is returned when a transcription request carries no audio
	// payload.
	ErrEmptyAudio = errors.New("audio payload is empty")
)
