// Package transcript materializes finished interviews into durable artifacts:
// a machine-readable JSON document and a human-readable plain-text rendering.
// Both are written under a configurable directory with deterministic names
// derived from the interview identity and the write time, so artifacts from
// distinct finish events never overwrite each other.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/talentwire/go-interview-backend/internal/domain"
)

// SchemaVersion identifies the JSON artifact layout. Bump on breaking changes.
const SchemaVersion = "1.0"

// Writer writes transcript artifacts into Dir, creating it on demand.
type Writer struct {
	// Dir is the transcripts directory. Created (with parents) on first write.
	Dir string

	// now is a seam for deterministic tests; defaults to time.Now.
	now func() time.Time
}

// NewWriter constructs a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, now: time.Now}
}

// InterviewInfo is the metadata block of the JSON artifact.
type InterviewInfo struct {
	ID                  string                 `json:"id"`
	UniqueLink          string                 `json:"unique_link"`
	CandidateName       string                 `json:"candidate_name"`
	CandidateID         string                 `json:"candidate_id"`
	Position            string                 `json:"position"`
	RecommendedDuration int                    `json:"recommended_duration_minutes"`
	ActualDuration      *int                   `json:"actual_duration_seconds"`
	Status              domain.InterviewStatus `json:"status"`
	CreatedAt           *time.Time             `json:"created_at"`
	StartedAt           *time.Time             `json:"started_at"`
	FinishedAt          *time.Time             `json:"finished_at"`
	KnowledgeBase       *string                `json:"knowledge_base"`
	Description         *string                `json:"description"`
}

// Entry is one conversation turn in the JSON artifact.
type Entry struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Metadata is the trailing block of the JSON artifact.
type Metadata struct {
	TotalMessages       int       `json:"total_messages"`
	TranscriptCreatedAt time.Time `json:"transcript_created_at"`
	FileVersion         string    `json:"file_version"`
}

// Document is the complete JSON artifact.
type Document struct {
	InterviewInfo InterviewInfo `json:"interview_info"`
	Conversation  []Entry       `json:"conversation"`
	Metadata      Metadata      `json:"metadata"`
}

// roleLabel renders a role for the plain-text artifact. Known roles use their
// fixed display labels; anything else is title-cased as a best effort.
func roleLabel(r domain.MessageRole) string {
	if r.Valid() {
		return r.DisplayName()
	}
	return cases.Title(language.English).String(string(r))
}

// Write produces both artifacts for the interview and its ordered message
// history, returning their paths. On any filesystem failure it returns a
// wrapped error; the caller decides whether that failure is fatal to the
// surrounding operation.
func (w *Writer) Write(iv *domain.Interview, messages []domain.ChatMessage) (jsonPath, textPath string, err error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create transcripts dir %s: %w", w.Dir, err)
	}

	now := w.now().UTC()
	base := fmt.Sprintf("interview_%s_%s_%s", iv.ID, linkPrefix(iv.UniqueLink), now.Format("20060102_150405"))
	jsonPath = filepath.Join(w.Dir, base+".json")
	textPath = filepath.Join(w.Dir, base+".txt")

	if err := w.writeJSON(jsonPath, iv, messages, now); err != nil {
		return "", "", err
	}
	if err := w.writeText(textPath, iv, messages, now); err != nil {
		return "", "", err
	}
	return jsonPath, textPath, nil
}

func (w *Writer) writeJSON(path string, iv *domain.Interview, messages []domain.ChatMessage, now time.Time) error {
	created := iv.CreatedAt
	doc := Document{
		InterviewInfo: InterviewInfo{
			ID:                  iv.ID,
			UniqueLink:          iv.UniqueLink,
			CandidateName:       iv.CandidateName,
			CandidateID:         iv.CandidateID,
			Position:            iv.Position,
			RecommendedDuration: iv.RecommendedDuration,
			ActualDuration:      iv.ActualDuration,
			Status:              iv.Status,
			CreatedAt:           &created,
			StartedAt:           iv.StartedAt,
			FinishedAt:          iv.FinishedAt,
			KnowledgeBase:       iv.KnowledgeBase,
			Description:         iv.Description,
		},
		Conversation: make([]Entry, 0, len(messages)),
		Metadata: Metadata{
			TotalMessages:       len(messages),
			TranscriptCreatedAt: now,
			FileVersion:         SchemaVersion,
		},
	}
	for _, m := range messages {
		doc.Conversation = append(doc.Conversation, Entry{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write transcript %s: %w", path, err)
	}
	return nil
}

func (w *Writer) writeText(path string, iv *domain.Interview, messages []domain.ChatMessage, now time.Time) error {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("INTERVIEW TRANSCRIPT")
	line("%s", strings.Repeat("=", 50))
	line("Interview ID: %s", iv.ID)
	line("Candidate: %s", iv.CandidateName)
	line("Candidate ID: %s", iv.CandidateID)
	line("Position: %s", iv.Position)
	line("Recommended duration: %d min", iv.RecommendedDuration)
	if iv.ActualDuration != nil {
		line("Actual duration: %d:%02d", *iv.ActualDuration/60, *iv.ActualDuration%60)
	}
	line("Status: %s", iv.Status)
	line("Created: %s", iv.CreatedAt.Format("2006-01-02 15:04:05"))
	if iv.StartedAt != nil {
		line("Started: %s", iv.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if iv.FinishedAt != nil {
		line("Finished: %s", iv.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	line("%s", strings.Repeat("=", 50))
	line("")
	line("CONVERSATION:")
	line("%s", strings.Repeat("-", 30))
	for _, m := range messages {
		line("[%s] %s: %s", m.CreatedAt.Format("15:04:05"), roleLabel(m.Role), m.Content)
	}
	line("")
	line("%s", strings.Repeat("-", 30))
	line("Total messages: %d", len(messages))
	line("Transcript created: %s", now.Format("2006-01-02 15:04:05"))

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write transcript %s: %w", path, err)
	}
	return nil
}

// linkPrefix returns the first 8 characters of the link token, tolerating
// short tokens.
func linkPrefix(link string) string {
	if len(link) > 8 {
		return link[:8]
	}
	return link
}
