// AI feature HTTP handlers.
//
// This file exposes the five AI endpoints plus the usage report:
//   - POST /ai/summary     {issueId}; ?stream=true streams text chunks
//   - POST /ai/suggestion  {issueId}
//   - POST /ai/labels      {issueId, projectId}
//   - POST /ai/duplicates  {title, projectId, description?, excludeIssueId?}
//   - POST /ai/comments    {issueId}
//   - GET  /ai/usage
//
// Every response carries a `cached` flag so clients can distinguish a cache
// hit from a fresh generation. Rate-limit rejections return 429 with
// machine-readable remaining/resetAt metadata.
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-issue-board/internal/ai"
)

//
// DTOs
//

// AIIssueRequest targets one issue for summary, suggestion, or comment
// digest requests.
type AIIssueRequest struct {
	IssueID string `json:"issueId" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// AILabelsRequest targets an issue plus the project whose labels may apply.
type AILabelsRequest struct {
	IssueID   string `json:"issueId" binding:"required"`
	ProjectID string `json:"projectId" binding:"required"`
}

// AIDuplicatesRequest carries draft issue text to check against a project's
// recent issues.
type AIDuplicatesRequest struct {
	Title          string `json:"title" binding:"required,min=1"`
	ProjectID      string `json:"projectId" binding:"required"`
	Description    string `json:"description"`
	ExcludeIssueID string `json:"excludeIssueId"`
}

// AISummaryResponse is the summary payload.
type AISummaryResponse struct {
	Summary string `json:"summary"`
	Cached  bool   `json:"cached"`
}

// AISuggestionResponse wraps the next-actions payload.
type AISuggestionResponse struct {
	Result *ai.SuggestionResult `json:"result"`
	Cached bool                 `json:"cached"`
}

// AILabelsResponse wraps the label suggestion payload.
type AILabelsResponse struct {
	Result *ai.LabelSuggestionResult `json:"result"`
	Cached bool                      `json:"cached"`
}

// AIDuplicatesResponse wraps the duplicate detection payload.
type AIDuplicatesResponse struct {
	Result *ai.DuplicateResult `json:"result"`
	Cached bool                `json:"cached"`
}

// AICommentsResponse wraps the comment digest payload.
type AICommentsResponse struct {
	Result *ai.CommentSummaryResult `json:"result"`
	Cached bool                     `json:"cached"`
}

//
// Handlers
//

// AISummary godoc
// @ID          aiSummary
// @Summary     Summarize an issue
// @Description Generates (or replays from cache) a concise summary of the
// @Description issue and its discussion. With ?stream=true the summary is
// @Description streamed as plain-text chunks instead of a JSON envelope.
// @Tags        AI
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Caller identity"
// @Param       stream     query   bool    false  "Stream text chunks"
// @Param       body       body    handlers.AIIssueRequest  true  "Target issue"
//
// @Success     200  {object}  handlers.AISummaryResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Issue not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Generation failed"
// @Router      /ai/summary [post]
func (h *Handlers) AISummary(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req AIIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "issueId required")
		return
	}

	if c.Query("stream") == "true" {
		h.streamSummary(c, uid, req.IssueID)
		return
	}

	summary, cached, err := h.AI.Summarize(c.Request.Context(), uid, req.IssueID)
	if err != nil {
		mapAIError(c, err)
		return
	}
	ok(c, http.StatusOK, AISummaryResponse{Summary: summary, Cached: cached})
}

// streamSummary writes the summary as chunked plain text. Errors surfacing
// before the first chunk map to normal JSON errors; once streaming has begun
// the connection is simply closed (headers are already out).
func (h *Handlers) streamSummary(c *gin.Context, uid, issueID string) {
	started := false
	flusher, canFlush := c.Writer.(http.Flusher)

	_, err := h.AI.SummarizeStream(c.Request.Context(), uid, issueID, func(chunk string) error {
		if !started {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Status(http.StatusOK)
			started = true
		}
		if _, werr := io.WriteString(c.Writer, chunk); werr != nil {
			return werr
		}
		if canFlush {
			flusher.Flush()
		}
		return nil
	})
	if err != nil && !started {
		mapAIError(c, err)
	}
}

// AISuggestion godoc
// @ID          aiSuggestion
// @Summary     Suggest next actions for an issue
// @Tags        AI
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       body       body    handlers.AIIssueRequest  true  "Target issue"
// @Success     200  {object}  handlers.AISuggestionResponse
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Router      /ai/suggestion [post]
func (h *Handlers) AISuggestion(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req AIIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "issueId required")
		return
	}
	result, cached, err := h.AI.SuggestActions(c.Request.Context(), uid, req.IssueID)
	if err != nil {
		mapAIError(c, err)
		return
	}
	ok(c, http.StatusOK, AISuggestionResponse{Result: result, Cached: cached})
}

// AILabels godoc
// @ID          aiLabels
// @Summary     Suggest labels for an issue
// @Description Only labels that exist on the project are returned; model
// @Description hallucinations are filtered out.
// @Tags        AI
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       body       body    handlers.AILabelsRequest  true  "Target issue and project"
// @Success     200  {object}  handlers.AILabelsResponse
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Router      /ai/labels [post]
func (h *Handlers) AILabels(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req AILabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "issueId and projectId required")
		return
	}
	result, cached, err := h.AI.SuggestLabels(c.Request.Context(), uid, req.IssueID, req.ProjectID)
	if err != nil {
		mapAIError(c, err)
		return
	}
	ok(c, http.StatusOK, AILabelsResponse{Result: result, Cached: cached})
}

// AIDuplicates godoc
// @ID          aiDuplicates
// @Summary     Detect duplicate issues
// @Description Checks draft issue text against the project's recent issues.
// @Tags        AI
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       body       body    handlers.AIDuplicatesRequest  true  "Draft issue text"
// @Success     200  {object}  handlers.AIDuplicatesResponse
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Router      /ai/duplicates [post]
func (h *Handlers) AIDuplicates(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req AIDuplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and projectId required")
		return
	}
	result, cached, err := h.AI.DetectDuplicates(c.Request.Context(), uid, ai.DuplicateQuery{
		Title:          req.Title,
		Description:    req.Description,
		ProjectID:      req.ProjectID,
		ExcludeIssueID: req.ExcludeIssueID,
	})
	if err != nil {
		mapAIError(c, err)
		return
	}
	ok(c, http.StatusOK, AIDuplicatesResponse{Result: result, Cached: cached})
}

// AIComments godoc
// @ID          aiComments
// @Summary     Summarize an issue's comment thread
// @Tags        AI
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       body       body    handlers.AIIssueRequest  true  "Target issue"
// @Success     200  {object}  handlers.AICommentsResponse
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Router      /ai/comments [post]
func (h *Handlers) AIComments(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req AIIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "issueId required")
		return
	}
	result, cached, err := h.AI.SummarizeComments(c.Request.Context(), uid, req.IssueID)
	if err != nil {
		mapAIError(c, err)
		return
	}
	ok(c, http.StatusOK, AICommentsResponse{Result: result, Cached: cached})
}

// AIUsage godoc
// @ID          aiUsage
// @Summary     Report the caller's AI usage
// @Description Returns today/this-week/this-month request counts and the
// @Description per-feature breakdown with remaining quota.
// @Tags        AI
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Success     200  {object}  ai.UsageStats
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /ai/usage [get]
func (h *Handlers) AIUsage(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	stats, err := h.AI.Usage(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
		return
	}
	ok(c, http.StatusOK, stats)
}
