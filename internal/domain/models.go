// Package domain defines the persistence models for interviews and chat
// messages. These types are mapped with GORM and form the core data layer
// of the interview platform backend.
package domain

import (
	"time"
)

// InterviewStatus enumerates the lifecycle states of an interview.
// Transitions are forward-only: not_started → started → finished.
type InterviewStatus string

const (
	StatusNotStarted InterviewStatus = "not_started"
	StatusStarted    InterviewStatus = "started"
	StatusFinished   InterviewStatus = "finished"
)

// Valid reports whether s is one of the known interview statuses.
func (s InterviewStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusStarted, StatusFinished:
		return true
	}
	return false
}

// MessageRole enumerates the authors of chat messages within an interview.
type MessageRole string

const (
	RoleAIHR      MessageRole = "ai_hr"
	RoleCandidate MessageRole = "candidate"
	RoleRecruiter MessageRole = "recruiter"
)

// Valid reports whether r is one of the known message roles.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleAIHR, RoleCandidate, RoleRecruiter:
		return true
	}
	return false
}

// DisplayName returns the human-readable label for a role, used in
// plain-text transcript rendering.
func (r MessageRole) DisplayName() string {
	switch r {
	case RoleAIHR:
		return "AI HR"
	case RoleCandidate:
		return "CANDIDATE"
	case RoleRecruiter:
		return "RECRUITER"
	}
	return string(r)
}

// Interview represents one scheduled candidate interview. The candidate-facing
// URL embeds UniqueLink (an opaque token) rather than the internal ID.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UniqueLink: opaque unique token for candidate-facing URLs; indexed.
//   - CandidateName / CandidateID: who the interview is for.
//   - Position: role the candidate is interviewing for.
//   - RecommendedDuration: planned length in minutes.
//   - KnowledgeBase / Description: optional free-text context for the AI interviewer.
//   - Status: lifecycle state (see InterviewStatus); forward-only.
//   - StartedAt / FinishedAt: stamped once by the lifecycle transitions.
//   - ActualDuration: whole seconds between StartedAt and FinishedAt; nil until finished.
//   - TranscriptFilePath: set once after successful transcript materialization.
type Interview struct {
	ID                  string          `json:"id"                    gorm:"type:char(36);primaryKey"`
	UniqueLink          string          `json:"unique_link"           gorm:"type:char(36);not null;uniqueIndex:ux_interview_link"`
	CandidateName       string          `json:"candidate_name"        gorm:"type:varchar(255);not null"`
	CandidateID         string          `json:"candidate_id"          gorm:"type:varchar(64);not null;index:idx_candidate_interviews"`
	Position            string          `json:"position"              gorm:"type:varchar(255);not null"`
	RecommendedDuration int             `json:"recommended_duration"  gorm:"not null"` // minutes
	KnowledgeBase       *string         `json:"knowledge_base,omitempty" gorm:"type:text"`
	Description         *string         `json:"description,omitempty" gorm:"type:text"`
	Status              InterviewStatus `json:"status"                gorm:"type:varchar(16);not null;default:'not_started';check:status IN ('not_started','started','finished')"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	StartedAt           *time.Time      `json:"started_at,omitempty"`
	FinishedAt          *time.Time      `json:"finished_at,omitempty"`
	ActualDuration      *int            `json:"actual_duration,omitempty"` // seconds
	TranscriptFilePath  *string         `json:"transcript_file_path,omitempty" gorm:"type:varchar(512)"`
}

// TableName returns the database table name for Interview.
func (Interview) TableName() string { return "interviews" }

// ChatMessage represents a single utterance within an interview. Messages
// are immutable once created and ordered by creation time ascending.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - InterviewID: foreign key to the owning interview (indexed with CreatedAt).
//   - Role: one of "ai_hr", "candidate", "recruiter" (enforced by DB constraint).
//   - Content: full text content of the utterance.
//   - CreatedAt: message timestamp, set at creation.
type ChatMessage struct {
	ID          string      `json:"id"           gorm:"type:char(36);primaryKey"`
	InterviewID string      `json:"interview_id" gorm:"type:char(36);not null;index:idx_interview_msgs,priority:1"`
	Role        MessageRole `json:"role"         gorm:"type:varchar(16);not null;check:role IN ('ai_hr','candidate','recruiter')"`
	Content     string      `json:"content"      gorm:"type:text;not null"`
	CreatedAt   time.Time   `json:"timestamp"    gorm:"index:idx_interview_msgs,priority:2"`

	// Interview is the parent session. Messages are cascade-deleted only
	// if the interview row is removed, which the API never does.
	Interview Interview `json:"-" gorm:"foreignKey:InterviewID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }
