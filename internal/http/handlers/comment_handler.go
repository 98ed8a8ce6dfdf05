// Comment and subtask HTTP handlers.
//
// This file exposes REST endpoints for discussion and checklists under issues:
//   - GET/POST /issues/{id}/comments,  PUT/DELETE /comments/{id}
//   - GET/POST /issues/{id}/subtasks,  PUT/DELETE /subtasks/{id}
//
// Mutations follow the archived-project guard; comment edits are author-only
// and deletes are allowed for the author or team ADMIN/OWNER.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

//
// DTOs
//

// CommentRequest is the JSON payload for creating or editing a comment.
type CommentRequest struct {
	Content string `json:"content" binding:"required,min=1" example:"Reproduced on staging with the same steps."`
}

// CreateSubtaskRequest is the JSON payload for adding a checklist item.
type CreateSubtaskRequest struct {
	Title string `json:"title" binding:"required,min=1" example:"Add regression test"`
}

// UpdateSubtaskRequest carries optional subtask fields.
type UpdateSubtaskRequest struct {
	Title       *string `json:"title,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}

//
// Comments
//

// ListComments godoc
// @ID          listComments
// @Summary     List an issue's comments
// @Tags        Comments
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Issue ID"
// @Success     200  {array}   domain.Comment
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /issues/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	comments, err := h.Comments.ListComments(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, comments)
}

// AddComment godoc
// @ID          addComment
// @Summary     Comment on an issue
// @Description The issue owner and assignee are notified unless they authored
// @Description the comment. Rejected on archived projects.
// @Tags        Comments
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Issue ID"
// @Param       body       body    handlers.CommentRequest  true  "Comment payload"
// @Success     201  {object}  domain.Comment
// @Failure     409  {object}  handlers.ErrorResponse  "Archived project"
// @Router      /issues/{id}/comments [post]
func (h *Handlers) AddComment(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	comment, err := h.Comments.AddComment(c.Request.Context(), uid, c.Param("id"), req.Content)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, comment)
}

// UpdateComment godoc
// @ID          updateComment
// @Summary     Edit a comment
// @Description Authors only.
// @Tags        Comments
// @Accept      json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Comment ID"
// @Param       body       body    handlers.CommentRequest  true  "New content"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /comments/{id} [put]
func (h *Handlers) UpdateComment(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	if err := h.Comments.UpdateComment(c.Request.Context(), uid, c.Param("id"), req.Content); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

// DeleteComment godoc
// @ID          deleteComment
// @Summary     Delete a comment
// @Description Allowed for the author and team ADMIN/OWNER.
// @Tags        Comments
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Comment ID"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /comments/{id} [delete]
func (h *Handlers) DeleteComment(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.Comments.DeleteComment(c.Request.Context(), uid, c.Param("id")); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

//
// Subtasks
//

// ListSubtasks godoc
// @ID          listSubtasks
// @Summary     List an issue's checklist
// @Tags        Subtasks
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Issue ID"
// @Success     200  {array}   domain.Subtask
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /issues/{id}/subtasks [get]
func (h *Handlers) ListSubtasks(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	subtasks, err := h.Comments.ListSubtasks(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, subtasks)
}

// AddSubtask godoc
// @ID          addSubtask
// @Summary     Add a checklist item
// @Description Rejected on archived projects.
// @Tags        Subtasks
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Issue ID"
// @Param       body       body    handlers.CreateSubtaskRequest  true  "Subtask payload"
// @Success     201  {object}  domain.Subtask
// @Failure     409  {object}  handlers.ErrorResponse  "Archived project"
// @Router      /issues/{id}/subtasks [post]
func (h *Handlers) AddSubtask(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req CreateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required")
		return
	}
	st, err := h.Comments.AddSubtask(c.Request.Context(), uid, c.Param("id"), req.Title)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, st)
}

// UpdateSubtask godoc
// @ID          updateSubtask
// @Summary     Update a checklist item
// @Description Changes the title and/or completion flag. Rejected on archived
// @Description projects.
// @Tags        Subtasks
// @Accept      json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Subtask ID"
// @Param       body       body    handlers.UpdateSubtaskRequest  true  "Fields to change"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /subtasks/{id} [put]
func (h *Handlers) UpdateSubtask(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req UpdateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.Comments.UpdateSubtask(c.Request.Context(), uid, c.Param("id"), req.Title, req.IsCompleted); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

// DeleteSubtask godoc
// @ID          deleteSubtask
// @Summary     Delete a checklist item
// @Tags        Subtasks
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Subtask ID"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /subtasks/{id} [delete]
func (h *Handlers) DeleteSubtask(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.Comments.DeleteSubtask(c.Request.Context(), uid, c.Param("id")); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}
