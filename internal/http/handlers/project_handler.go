// Project HTTP handlers.
//
// This file exposes REST endpoints for projects and their board
// configuration (status columns and labels):
//   - POST   /teams/{id}/projects       (create, seeds default columns)
//   - GET    /teams/{id}/projects       (list)
//   - GET    /projects/{id}             (fetch with statuses and labels)
//   - PUT    /projects/{id}             (update, ADMIN+)
//   - DELETE /projects/{id}             (soft delete, ADMIN+)
//   - POST   /projects/{id}/archive     (archive, ADMIN+)
//   - DELETE /projects/{id}/archive     (unarchive, ADMIN+)
//   - GET/POST /projects/{id}/statuses, PUT/DELETE /statuses/{id}
//   - GET/POST /projects/{id}/labels,   PUT/DELETE /labels/{id}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

//
// DTOs
//

// CreateProjectRequest is the JSON payload for creating a project.
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,min=1" example:"Website Redesign"`
	Description string `json:"description" example:"Q4 marketing site refresh"`
}

// UpdateProjectRequest carries optional project fields; absent fields are
// left untouched.
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty" example:"Website v2"`
	Description *string `json:"description,omitempty"`
}

// CreateStatusRequest is the JSON payload for adding a board column.
type CreateStatusRequest struct {
	Name string `json:"name" binding:"required,min=1" example:"In Review"`
	// WIPLimit is advisory; omit for no limit.
	WIPLimit *int `json:"wip_limit,omitempty" example:"3"`
}

// UpdateStatusRequest carries optional column fields. A negative wip_limit
// clears the limit.
type UpdateStatusRequest struct {
	Name     *string `json:"name,omitempty"`
	Position *int    `json:"position,omitempty"`
	WIPLimit *int    `json:"wip_limit,omitempty"`
}

// CreateLabelRequest is the JSON payload for adding a label.
type CreateLabelRequest struct {
	Name string `json:"name" binding:"required,min=1" example:"bug"`
	// Color is a hex string; a neutral default is applied when empty.
	Color string `json:"color" example:"#d73a4a"`
}

// UpdateLabelRequest carries optional label fields.
type UpdateLabelRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

//
// Projects
//

// CreateProject godoc
// @ID          createProject
// @Summary     Create a project
// @Description Creates a project under a team and seeds the default Backlog,
// @Description In Progress, and Done columns. Any team member may create.
// @Tags        Projects
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Team ID"
// @Param       body       body    handlers.CreateProjectRequest  true  "Project payload"
// @Success     201  {object}  domain.Project
// @Failure     404  {object}  handlers.ErrorResponse  "Team not found"
// @Router      /teams/{id}/projects [post]
func (h *Handlers) CreateProject(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required")
		return
	}
	p, err := h.Projects.Create(c.Request.Context(), uid, c.Param("id"), req.Name, req.Description)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// ListProjects godoc
// @ID          listProjects
// @Summary     List a team's projects
// @Tags        Projects
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Team ID"
// @Success     200  {array}   domain.Project
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /teams/{id}/projects [get]
func (h *Handlers) ListProjects(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	projects, err := h.Projects.List(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, projects)
}

// GetProject godoc
// @ID          getProject
// @Summary     Fetch a project with its board configuration
// @Tags        Projects
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Project ID"
// @Success     200  {object}  services.ProjectDetail
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /projects/{id} [get]
func (h *Handlers) GetProject(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	detail, err := h.Projects.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, detail)
}

// UpdateProject godoc
// @ID          updateProject
// @Summary     Update a project's name or description
// @Description Requires ADMIN or OWNER role.
// @Tags        Projects
// @Accept      json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Project ID"
// @Param       body       body    handlers.UpdateProjectRequest  true  "Fields to change"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /projects/{id} [put]
func (h *Handlers) UpdateProject(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.Projects.Update(c.Request.Context(), uid, c.Param("id"), req.Name, req.Description); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

// DeleteProject godoc
// @ID          deleteProject
// @Summary     Delete a project
// @Description Soft delete. Requires ADMIN or OWNER role.
// @Tags        Projects
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Project ID"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /projects/{id} [delete]
func (h *Handlers) DeleteProject(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.Projects.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

// ArchiveProject godoc
// @ID          archiveProject
// @Summary     Archive a project
// @Description Archived projects reject issue, comment, and subtask mutations.
// @Tags        Projects
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Project ID"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /projects/{id}/archive [post]
func (h *Handlers) ArchiveProject(c *gin.Context) {
	h.setArchived(c, true)
}

// UnarchiveProject godoc
// @ID          unarchiveProject
// @Summary     Unarchive a project
// @Tags        Projects
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Project ID"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /projects/{id}/archive [delete]
func (h *Handlers) UnarchiveProject(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *Handlers) setArchived(c *gin.Context, archived bool) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.Projects.SetArchived(c.Request.Context(), uid, c.Param("id"), archived); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

//
// Statuses
//

// ListStatuses godoc
// @ID          listStatuses
// @Summary     List a project's board columns
// @Tags        Statuses
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Project ID"
// @Success     200  {array}   domain.Status
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /projects/{id}/statuses [get]
func (h *Handlers) ListStatuses(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	statuses, err := h.Projects.ListStatuses(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, statuses)
}

// CreateStatus godoc
// @ID          createStatus
// @Summary     Add a board column
// @Description Appends the column after the existing ones. Requires ADMIN+.
// @Tags        Statuses
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Project ID"
// @Param       body       body    handlers.CreateStatusRequest  true  "Column payload"
// @Success     201  {object}  domain.Status
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /projects/{id}/statuses [post]
func (h *Handlers) CreateStatus(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req CreateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required")
		return
	}
	st, err := h.Projects.CreateStatus(c.Request.Context(), uid, c.Param("id"), req.Name, req.WIPLimit)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, st)
}

// UpdateStatus godoc
// @ID          updateStatus
// @Summary     Update a board column
// @Description Requires ADMIN+. A negative wip_limit clears the limit.
// @Tags        Statuses
// @Accept      json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Status ID"
// @Param       body       body    handlers.UpdateStatusRequest  true  "Fields to change"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /statuses/{id} [put]
func (h *Handlers) UpdateStatus(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.Projects.UpdateStatus(c.Request.Context(), uid, c.Param("id"), req.Name, req.Position, req.WIPLimit); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

// DeleteStatus godoc
// @ID          deleteStatus
// @Summary     Delete an empty board column
// @Description Requires ADMIN+. Columns still holding live issues are refused.
// @Tags        Statuses
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Status ID"
// @Success     204  {string}  string  "No Content"
// @Failure     409  {object}  handlers.ErrorResponse  "Column not empty"
// @Router      /statuses/{id} [delete]
func (h *Handlers) DeleteStatus(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.Projects.DeleteStatus(c.Request.Context(), uid, c.Param("id")); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

//
// Labels
//

// ListLabels godoc
// @ID          listLabels
// @Summary     List a project's labels
// @Tags        Labels
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Project ID"
// @Success     200  {array}   domain.Label
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /projects/{id}/labels [get]
func (h *Handlers) ListLabels(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	labels, err := h.Projects.ListLabels(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, labels)
}

// CreateLabel godoc
// @ID          createLabel
// @Summary     Add a label
// @Description Any team member may manage labels.
// @Tags        Labels
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Project ID"
// @Param       body       body    handlers.CreateLabelRequest  true  "Label payload"
// @Success     201  {object}  domain.Label
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /projects/{id}/labels [post]
func (h *Handlers) CreateLabel(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req CreateLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required")
		return
	}
	l, err := h.Projects.CreateLabel(c.Request.Context(), uid, c.Param("id"), req.Name, req.Color)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, l)
}

// UpdateLabel godoc
// @ID          updateLabel
// @Summary     Update a label
// @Tags        Labels
// @Accept      json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Label ID"
// @Param       body       body    handlers.UpdateLabelRequest  true  "Fields to change"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /labels/{id} [put]
func (h *Handlers) UpdateLabel(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req UpdateLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.Projects.UpdateLabel(c.Request.Context(), uid, c.Param("id"), req.Name, req.Color); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

// DeleteLabel godoc
// @ID          deleteLabel
// @Summary     Delete a label
// @Tags        Labels
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Label ID"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /labels/{id} [delete]
func (h *Handlers) DeleteLabel(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.Projects.DeleteLabel(c.Request.Context(), uid, c.Param("id")); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}
