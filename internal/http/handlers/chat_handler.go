// Chat HTTP handlers.
//
// This file exposes REST endpoints for interview chat messages:
//   - GET  /chat/{id}/messages    (list paginated messages, ETag support)
//   - POST /chat/{id}/messages    (append a message, fan out to subscribers)
//   - POST /chat/{id}/ai-message  (append an interviewer message)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to application services (MessageService)
//   - implement conditional responses (ETag) and idempotency semantics
//   - publish persisted messages to live WebSocket subscribers
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, interview, key), the handler returns that recorded
// message and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/talentwire/go-interview-backend/internal/domain"
	"github.com/talentwire/go-interview-backend/internal/relay"
	"github.com/talentwire/go-interview-backend/internal/repo"
	"github.com/talentwire/go-interview-backend/internal/services"
	"github.com/talentwire/go-interview-backend/internal/utils"
)

//
// DTOs
//

// PostChatMessageRequest is the JSON payload for appending a chat message.
//
// Content is normalized by the handler (line endings and excessive blank
// lines) before being passed to the service layer. The service also enforces
// a maximum rune count, which can be configured in MessageService.
type PostChatMessageRequest struct {
	// Role identifies the author: ai_hr, candidate, or recruiter.
	Role string `json:"role" binding:"required" example:"candidate"`
	// Content is the message text. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"Could you walk me through your last project?"`
}

// PostAIMessageRequest is the JSON payload for the interviewer shortcut
// endpoint; the role is fixed to ai_hr.
type PostAIMessageRequest struct {
	// Content is the interviewer message text. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"Tell me about a challenge you faced."`
}

// PostChatMessageResponse is the JSON envelope for a newly persisted message.
type PostChatMessageResponse struct {
	// Message is the canonical persisted form, with assigned id and timestamp.
	Message *domain.ChatMessage `json:"message"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListChatMessagesResponse contains a page of messages and pagination metadata.
type ListChatMessagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes message text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxContentRunes inspects the concrete MessageService for a
// configured content-length limit. If unavailable, it returns a conservative
// fallback.
func discoverMaxContentRunes(msgSvc MessageService) int {
	const fallback = 4000
	if ms, ok := msgSvc.(*services.MessageService); ok {
		if ms.MaxContentRunes > 0 {
			return ms.MaxContentRunes
		}
	}
	return fallback
}

// userID extracts the caller identity from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// messageFrame converts a persisted message into its relay wire form.
func messageFrame(m *domain.ChatMessage) relay.Frame {
	return relay.Frame{
		Type: relay.FrameMessage,
		Message: &relay.MessagePayload{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.CreatedAt.UTC().Format(time.RFC3339),
		},
	}
}

//
// Handlers
//

// PostChatMessage godoc
// @ID          postChatMessage
// @Summary     Append a chat message
// @Description Persists a message for the interview and fans it out to live WebSocket subscribers.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "Caller identity for idempotency scoping"  example(recruiter-7)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Interview ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostChatMessageRequest  true  "Message payload"
//
// @Success     201  {object}  handlers.PostChatMessageResponse  "Persisted message"
// @Failure     400  {object}  handlers.ErrorResponse            "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse            "Interview not found"
// @Failure     500  {object}  handlers.ErrorResponse            "Internal error"
// @Router      /chat/{id}/messages [post]
func (h *Handlers) PostChatMessage(c *gin.Context) {
	var req PostChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role and content required")
		return
	}
	h.appendMessage(c, domain.MessageRole(req.Role), req.Content)
}

// PostAIMessage godoc
// @ID          postAIMessage
// @Summary     Append an interviewer message
// @Description Persists a message with the ai_hr role and fans it out to live WebSocket subscribers. Used by the interview orchestrator.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Interview ID (UUID)"  format(uuid)
// @Param       body  body  handlers.PostAIMessageRequest  true  "Message payload"
//
// @Success     201  {object}  handlers.PostChatMessageResponse  "Persisted message"
// @Failure     400  {object}  handlers.ErrorResponse            "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse            "Interview not found"
// @Failure     500  {object}  handlers.ErrorResponse            "Internal error"
// @Router      /chat/{id}/ai-message [post]
func (h *Handlers) PostAIMessage(c *gin.Context) {
	var req PostAIMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	h.appendMessage(c, domain.RoleAIHR, req.Content)
}

// appendMessage is the shared persist-then-fanout path behind both POST
// endpoints.
func (h *Handlers) appendMessage(c *gin.Context, role domain.MessageRole, rawContent string) {
	ctx := c.Request.Context()
	id, okID := interviewID(c)
	if !okID {
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	content := sanitizeContent(rawContent)
	maxRunes := discoverMaxContentRunes(h.msgSvc)
	if maxRunes > 0 && utf8.RuneCountInString(content) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		return
	}
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, id, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusCreated, PostChatMessageResponse{Message: prev})
					return
				}
			}
		}
	}

	// Normal processing (service has a second guard for length).
	m, err := h.msgSvc.Append(ctx, id, role, content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInterviewNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "interview not found")
		case errors.Is(err, services.ErrInvalidRole),
			errors.Is(err, services.ErrEmptyContent):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrContentTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, id, idemKey, m.ID, http.StatusCreated, ttl)
		}
	}

	// Fan out to live subscribers after the write committed.
	if h.relayReg != nil {
		h.relayReg.Publish(id, nil, messageFrame(m))
	}

	ok(c, http.StatusCreated, PostChatMessageResponse{Message: m})
}

// ListChatMessages godoc
// @ID          listChatMessages
// @Summary     List messages of an interview
// @Description Returns a paginated list of messages in ascending timestamp order. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       id             path    string  true  "Interview ID (UUID)"  format(uuid)
// @Param       page           query   int     false "Page number"          minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"       minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListChatMessagesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Interview not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chat/{id}/messages [get]
func (h *Handlers) ListChatMessages(c *gin.Context) {
	ctx := c.Request.Context()
	id, okID := interviewID(c)
	if !okID {
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.MessagesStats(ctx, db, id)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, id, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.msgSvc.ListPage(ctx, id, page, pageSize)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInterviewNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "interview not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListChatMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
