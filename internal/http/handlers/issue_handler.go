// Issue HTTP handlers.
//
// This file exposes REST endpoints for issues and the kanban board:
//   - POST   /projects/{id}/issues   (create; honors Idempotency-Key)
//   - GET    /projects/{id}/issues   (board payload, ETag support)
//   - GET    /issues/{id}            (detail with subtasks and comment count)
//   - PUT    /issues/{id}            (update fields and labels)
//   - POST   /issues/{id}/move       (drag-and-drop placement)
//   - DELETE /issues/{id}            (soft delete)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, project, key), the handler returns the recorded
// issue and sets `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-issue-board/internal/http/middleware"
	"github.com/tbourn/go-issue-board/internal/repo"
	"github.com/tbourn/go-issue-board/internal/services"
)

//
// DTOs
//

// CreateIssueRequest is the JSON payload for creating an issue.
type CreateIssueRequest struct {
	// Title is required (1-255 chars after whitespace normalization).
	Title       string `json:"title" binding:"required,min=1" example:"Login button unresponsive on Safari"`
	Description string `json:"description"`
	// Priority is HIGH, MEDIUM (default), or LOW.
	Priority string `json:"priority" example:"HIGH"`
	// StatusID optionally places the issue; defaults to the Backlog column.
	StatusID   string     `json:"status_id"`
	AssigneeID *string    `json:"assignee_id,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	LabelIDs   []string   `json:"label_ids,omitempty"`
}

// UpdateIssueRequest carries optional issue fields; absent fields stay
// untouched. The clear flags reset nullable fields.
type UpdateIssueRequest struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Priority      *string    `json:"priority,omitempty"`
	AssigneeID    *string    `json:"assignee_id,omitempty"`
	ClearAssignee bool       `json:"clear_assignee,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	ClearDueDate  bool       `json:"clear_due_date,omitempty"`
	LabelIDs      *[]string  `json:"label_ids,omitempty"`
}

// MoveIssueRequest is the JSON payload for a drag-and-drop move.
type MoveIssueRequest struct {
	StatusID string `json:"status_id" binding:"required"`
	Position int    `json:"position"`
}

//
// Handlers
//

// CreateIssue godoc
// @ID          createIssue
// @Summary     Create an issue
// @Description Creates an issue at the end of its column (Backlog by default).
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Issues
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true   "Caller identity"
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries (UUID recommended)"
// @Param       id               path    string  true   "Project ID"
// @Param       body             body    handlers.CreateIssueRequest  true  "Issue payload"
//
// @Success     201  {object}  domain.Issue
// @Failure     404  {object}  handlers.ErrorResponse  "Project not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Archived project or issue cap"
// @Router      /projects/{id}/issues [post]
func (h *Handlers) CreateIssue(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	ctx := c.Request.Context()
	projectID := c.Param("id")

	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required")
		return
	}

	// Idempotency (replay path) - read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.DB != nil {
		if rec, err := repo.GetIdempotency(ctx, h.DB, uid, projectID, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, err2 := h.Issues.Get(ctx, uid, rec.IssueID); err2 == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, rec.Status, prev.Issue)
				return
			}
		}
	}

	issue, err := h.Issues.Create(ctx, uid, projectID, services.CreateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		StatusID:    req.StatusID,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		LabelIDs:    req.LabelIDs,
	})
	if err != nil {
		mapServiceError(c, err)
		return
	}

	// Idempotency (store path) - best effort.
	if idemKey != "" && h.DB != nil {
		ttl := 24 * time.Hour
		_, _ = repo.CreateIdempotency(ctx, h.DB, uid, projectID, idemKey, issue.ID, http.StatusCreated, ttl)
	}

	ok(c, http.StatusCreated, issue)
}

// GetBoard godoc
// @ID          getBoard
// @Summary     Fetch the project board
// @Description Returns the project's issues grouped into ordered columns.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Issues
// @Produce     json
//
// @Param       X-User-ID      header  string  true   "Caller identity"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       id             path    string  true   "Project ID"
//
// @Success     200  {array}   board.Column
// @Header      200  {string}  ETag  "Weak ETag for current board state"
// @Success     304  {string}  string  "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /projects/{id}/issues [get]
func (h *Handlers) GetBoard(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	ctx := c.Request.Context()
	projectID := c.Param("id")

	// ETag pre-check (best effort): live issue count + latest update time.
	if count, maxTS, err := h.Issues.BoardStats(ctx, uid, projectID); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"board:%s:%d:%d"`, projectID, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	} else {
		mapServiceError(c, err)
		return
	}

	cols, err := h.Issues.Board(ctx, uid, projectID)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, cols)
}

// GetIssue godoc
// @ID          getIssue
// @Summary     Fetch an issue
// @Description Returns the issue with labels, subtasks, and comment count.
// @Tags        Issues
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Issue ID"
// @Success     200  {object}  services.IssueDetail
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /issues/{id} [get]
func (h *Handlers) GetIssue(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	detail, err := h.Issues.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, detail)
}

// UpdateIssue godoc
// @ID          updateIssue
// @Summary     Update an issue
// @Description Changes fields and/or replaces the label set. Rejected on
// @Description archived projects.
// @Tags        Issues
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Issue ID"
// @Param       body       body    handlers.UpdateIssueRequest  true  "Fields to change"
// @Success     200  {object}  domain.Issue
// @Failure     409  {object}  handlers.ErrorResponse  "Archived project"
// @Router      /issues/{id} [put]
func (h *Handlers) UpdateIssue(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	issue, err := h.Issues.Update(c.Request.Context(), uid, c.Param("id"), services.UpdateIssueInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		AssigneeID:    req.AssigneeID,
		ClearAssignee: req.ClearAssignee,
		DueDate:       req.DueDate,
		ClearDueDate:  req.ClearDueDate,
		LabelIDs:      req.LabelIDs,
	})
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, issue)
}

// MoveIssue godoc
// @ID          moveIssue
// @Summary     Move an issue on the board
// @Description Overwrites the issue's column and position. Sibling issues are
// @Description never renumbered. Rejected on archived projects.
// @Tags        Issues
// @Accept      json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Issue ID"
// @Param       body       body    handlers.MoveIssueRequest  true  "Target placement"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Issue or status not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Archived project"
// @Router      /issues/{id}/move [post]
func (h *Handlers) MoveIssue(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req MoveIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status_id required")
		return
	}
	if err := h.Issues.Move(c.Request.Context(), uid, c.Param("id"), req.StatusID, req.Position); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

// DeleteIssue godoc
// @ID          deleteIssue
// @Summary     Delete an issue
// @Description Soft delete. Allowed for the issue owner and team ADMIN/OWNER.
// @Tags        Issues
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Issue ID"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /issues/{id} [delete]
func (h *Handlers) DeleteIssue(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.Issues.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}
