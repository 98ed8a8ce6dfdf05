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
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/tbourn/go-issue-board/internal/ai"
	"github.com/tbourn/go-issue-board/internal/config"
	"github.com/tbourn/go-issue-board/internal/http/handlers"
	"github.com/tbourn/go-issue-board/internal/http/middleware"
	"github.com/tbourn/go-issue-board/internal/repo"
	"github.com/tbourn/go-issue-board/internal/services"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

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
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, gen ai.TextGenerator, cfg config.Config) {
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

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting). The project id is the
	// :id route param on POST /projects/:id/issues, the only idempotent route.
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, projectID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, projectID, key, now)
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
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
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
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
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

	// Swagger UI, opt-in (docs are registered by the generated docs package)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Compress API responses (board payloads in particular). The summary
	// stream is excluded so chunks are not buffered by the gzip writer.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics", cfg.APIBasePath + "/ai/summary"})))

	// Dependency injection: services ← db/gateway
	gateway := ai.NewGateway(db, gen)
	notifSvc := services.NewNotificationService(db)
	teamSvc := services.NewTeamService(db, notifSvc)
	projectSvc := services.NewProjectService(db)
	issueSvc := services.NewIssueService(db, notifSvc, gateway.Cache)
	commentSvc := services.NewCommentService(db, notifSvc, gateway.Cache)

	h := handlers.New(db, teamSvc, projectSvc, issueSvc, commentSvc, notifSvc, gateway)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Teams and membership
		api.POST("/teams", h.CreateTeam)
		api.GET("/teams", h.ListTeams)
		api.GET("/teams/:id", h.GetTeam)
		api.PUT("/teams/:id", h.UpdateTeam)
		api.DELETE("/teams/:id", h.DeleteTeam)
		api.POST("/teams/:id/members", h.AddTeamMember)
		api.DELETE("/teams/:id/members/:userId", h.RemoveTeamMember)
		api.PUT("/teams/:id/members/:userId/role", h.ChangeTeamMemberRole)

		// Projects
		api.POST("/teams/:id/projects", h.CreateProject)
		api.GET("/teams/:id/projects", h.ListProjects)
		api.GET("/projects/:id", h.GetProject)
		api.PUT("/projects/:id", h.UpdateProject)
		api.DELETE("/projects/:id", h.DeleteProject)
		api.POST("/projects/:id/archive", h.ArchiveProject)
		api.DELETE("/projects/:id/archive", h.UnarchiveProject)

		// Statuses (board columns)
		api.GET("/projects/:id/statuses", h.ListStatuses)
		api.POST("/projects/:id/statuses", h.CreateStatus)
		api.PUT("/statuses/:id", h.UpdateStatus)
		api.DELETE("/statuses/:id", h.DeleteStatus)

		// Labels
		api.GET("/projects/:id/labels", h.ListLabels)
		api.POST("/projects/:id/labels", h.CreateLabel)
		api.PUT("/labels/:id", h.UpdateLabel)
		api.DELETE("/labels/:id", h.DeleteLabel)

		// Issues and the board
		api.GET("/projects/:id/board", h.GetBoard)
		api.GET("/projects/:id/issues", h.GetBoard)
		api.POST("/projects/:id/issues", h.CreateIssue)
		api.GET("/issues/:id", h.GetIssue)
		api.PUT("/issues/:id", h.UpdateIssue)
		api.POST("/issues/:id/move", h.MoveIssue)
		api.DELETE("/issues/:id", h.DeleteIssue)

		// Comments and subtasks
		api.GET("/issues/:id/comments", h.ListComments)
		api.POST("/issues/:id/comments", h.AddComment)
		api.PUT("/comments/:id", h.UpdateComment)
		api.DELETE("/comments/:id", h.DeleteComment)
		api.GET("/issues/:id/subtasks", h.ListSubtasks)
		api.POST("/issues/:id/subtasks", h.AddSubtask)
		api.PUT("/subtasks/:id", h.UpdateSubtask)
		api.DELETE("/subtasks/:id", h.DeleteSubtask)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.POST("/notifications/:id/read", h.MarkNotificationRead)
		api.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		api.DELETE("/notifications/:id", h.DeleteNotification)

		// AI assistant
		api.POST("/ai/summary", h.AISummary)
		api.POST("/ai/suggestion", h.AISuggestion)
		api.POST("/ai/labels", h.AILabels)
		api.POST("/ai/duplicates", h.AIDuplicates)
		api.POST("/ai/comments", h.AIComments)
		api.GET("/ai/usage", h.AIUsage)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
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
