// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/talentwire/go-interview-backend/internal/config"
	"github.com/talentwire/go-interview-backend/internal/domain"
	"github.com/talentwire/go-interview-backend/internal/http/handlers"
	"github.com/talentwire/go-interview-backend/internal/http/middleware"
	"github.com/talentwire/go-interview-backend/internal/relay"
	"github.com/talentwire/go-interview-backend/internal/repo"
	"github.com/talentwire/go-interview-backend/internal/services"
	"github.com/talentwire/go-interview-backend/internal/transcript"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// interviewRepoShim adapts the repository free functions to the
// services.InterviewRepo interface expected by the InterviewService. This
// keeps services decoupled from the concrete repo package while reusing
// existing functions.
type interviewRepoShim struct{}

// CreateInterview proxies repo.CreateInterview.
func (interviewRepoShim) CreateInterview(ctx context.Context, db *gorm.DB, iv *domain.Interview) (*domain.Interview, error) {
	return repo.CreateInterview(ctx, db, iv)
}

// GetInterview proxies repo.GetInterview.
func (interviewRepoShim) GetInterview(ctx context.Context, db *gorm.DB, id string) (*domain.Interview, error) {
	return repo.GetInterview(ctx, db, id)
}

// GetInterviewByLink proxies repo.GetInterviewByLink.
func (interviewRepoShim) GetInterviewByLink(ctx context.Context, db *gorm.DB, link string) (*domain.Interview, error) {
	return repo.GetInterviewByLink(ctx, db, link)
}

// MarkStarted proxies repo.MarkStarted.
func (interviewRepoShim) MarkStarted(ctx context.Context, db *gorm.DB, id string, at time.Time) (int64, error) {
	return repo.MarkStarted(ctx, db, id, at)
}

// MarkFinished proxies repo.MarkFinished.
func (interviewRepoShim) MarkFinished(ctx context.Context, db *gorm.DB, id string, at time.Time, duration *int) (int64, error) {
	return repo.MarkFinished(ctx, db, id, at, duration)
}

// SetTranscriptPath proxies repo.SetTranscriptPath.
func (interviewRepoShim) SetTranscriptPath(ctx context.Context, db *gorm.DB, id, path string) error {
	return repo.SetTranscriptPath(ctx, db, id, path)
}

// ListMessages proxies repo.ListMessages (transcript assembly).
func (interviewRepoShim) ListMessages(db *gorm.DB, interviewID string, limit int) ([]domain.ChatMessage, error) {
	return repo.ListMessages(db, interviewID, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter (larger cap for audio uploads)
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, reg *relay.Registry, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limit: 1 MiB for JSON, a roomier cap for audio uploads
	r.Use(limitBody(1<<20, 26<<20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, interviewID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, interviewID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/transcripts/speech
	ivSvc := services.NewInterviewService(db, interviewRepoShim{}, transcript.NewWriter(cfg.TranscriptsDir))
	msgSvc := &services.MessageService{
		DB:              db,
		MaxContentRunes: cfg.MaxMessageRunes,
	}

	var speechSvc handlers.SpeechService
	if cfg.Speech.OpenAIAPIKey != "" {
		speechSvc = services.NewSpeechService(
			services.NewWhisperBackend(cfg.Speech.OpenAIAPIKey),
			cfg.Speech.Workers,
		)
	}

	h := handlers.New(ivSvc, msgSvc, speechSvc, reg, cfg.PublicBaseURL)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Interview lifecycle. The :id segment on GET doubles as the
		// candidate link token; Gin requires one wildcard name for the
		// whole /interviews subtree.
		api.POST("/interviews", h.CreateInterview)
		api.GET("/interviews/:id", h.GetInterviewByLink)
		api.PATCH("/interviews/:id/start", h.StartInterview)
		api.PATCH("/interviews/:id/finish", h.FinishInterview)
		api.GET("/interviews/:id/status", h.GetInterviewStatus)

		// Chat messages and live relay
		api.GET("/chat/:id/messages", h.ListChatMessages)
		api.POST("/chat/:id/messages", h.PostChatMessage)
		api.POST("/chat/:id/ai-message", h.PostAIMessage)
		api.GET("/chat/:id/ws", h.ChatWS)

		// Speech recognition
		api.POST("/speech/transcribe/:id", h.Transcribe)
		api.GET("/speech/health", h.SpeechHealth)
	}
}

// limitBody returns a Gin middleware that caps the request body size using
// http.MaxBytesReader. Audio upload routes get uploadMaxBytes; everything
// else gets maxBytes. Requests exceeding the cap will cause downstream body
// reads to error.
func limitBody(maxBytes, uploadMaxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if strings.HasSuffix(c.FullPath(), "/speech/transcribe/:id") {
			limit = uploadMaxBytes
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
