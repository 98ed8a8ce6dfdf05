// Handler wiring shared by all endpoint files.
//
// Handlers are transport-thin: they authenticate the caller, validate and
// normalize inputs, delegate to application services, and translate results
// (including service sentinel errors) into HTTP responses.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-issue-board/internal/ai"
	"github.com/tbourn/go-issue-board/internal/services"
	"github.com/tbourn/go-issue-board/internal/utils"
)

// Handlers groups the HTTP endpoints for teams, projects, issues, comments,
// notifications, and the AI features. It holds concrete services; transport
// concerns stay in this package, business rules in internal/services.
type Handlers struct {
	DB       *gorm.DB
	Teams    *services.TeamService
	Projects *services.ProjectService
	Issues   *services.IssueService
	Comments *services.CommentService
	Notifs   *services.NotificationService
	AI       *ai.Gateway
}

// New constructs a Handlers instance bound to the given services.
func New(db *gorm.DB, teams *services.TeamService, projects *services.ProjectService,
	issues *services.IssueService, comments *services.CommentService,
	notifs *services.NotificationService, gateway *ai.Gateway) *Handlers {
	return &Handlers{
		DB:       db,
		Teams:    teams,
		Projects: projects,
		Issues:   issues,
		Comments: comments,
		Notifs:   notifs,
		AI:       gateway,
	}
}

// requireUser extracts the caller identity set by upstream middleware (or the
// X-User-ID header directly) and fails the request with 401 when absent.
// Identity must be resolved before any side effect.
func requireUser(c *gin.Context) (string, bool) {
	if v, okv := c.Get("userID"); okv {
		if s, oks := v.(string); oks && s != "" {
			return s, true
		}
	}
	if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
		return h, true
	}
	fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "X-User-ID header required")
	return "", false
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
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
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
