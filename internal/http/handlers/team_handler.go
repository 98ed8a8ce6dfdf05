// Team HTTP handlers.
//
// This file exposes REST endpoints for teams and memberships:
//   - POST   /teams                                 (create, creator becomes OWNER)
//   - GET    /teams                                 (list the caller's teams)
//   - GET    /teams/{id}                            (fetch with members)
//   - PUT    /teams/{id}                            (rename, ADMIN+)
//   - DELETE /teams/{id}                            (soft delete, OWNER)
//   - POST   /teams/{id}/members                    (add member, ADMIN+)
//   - DELETE /teams/{id}/members/{userId}           (remove member)
//   - PUT    /teams/{id}/members/{userId}/role      (change role, OWNER)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-issue-board/internal/domain"
)

//
// DTOs
//

// CreateTeamRequest is the JSON payload for creating a team.
type CreateTeamRequest struct {
	// Name is the team name (1-100 chars after whitespace normalization).
	Name string `json:"name" binding:"required,min=1" example:"Platform Team"`
}

// UpdateTeamRequest is the JSON payload for renaming a team.
type UpdateTeamRequest struct {
	Name string `json:"name" binding:"required,min=1" example:"Platform Guild"`
}

// AddMemberRequest is the JSON payload for adding a team member.
type AddMemberRequest struct {
	// UserID identifies the user to add.
	UserID string `json:"user_id" binding:"required" example:"user456"`
	// Role is MEMBER (default) or ADMIN. OWNER cannot be granted here.
	Role string `json:"role" example:"MEMBER"`
}

// ChangeRoleRequest is the JSON payload for changing a member's role.
// Assigning OWNER transfers ownership.
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required" example:"ADMIN"`
}

// TeamDetailResponse wraps a team and its live memberships.
type TeamDetailResponse struct {
	Team    *domain.Team        `json:"team"`
	Members []domain.TeamMember `json:"members"`
}

//
// Handlers
//

// CreateTeam godoc
// @ID          createTeam
// @Summary     Create a team
// @Description Creates a team; the caller becomes its OWNER member.
// @Tags        Teams
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller identity"  example(user123)
// @Param       body       body    handlers.CreateTeamRequest  true  "Create team payload"
//
// @Success     201  {object}  domain.Team
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Router      /teams [post]
func (h *Handlers) CreateTeam(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required")
		return
	}
	team, err := h.Teams.Create(c.Request.Context(), uid, req.Name)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, team)
}

// ListTeams godoc
// @ID          listTeams
// @Summary     List the caller's teams
// @Tags        Teams
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"  example(user123)
// @Success     200  {array}   domain.Team
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /teams [get]
func (h *Handlers) ListTeams(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	teams, err := h.Teams.List(c.Request.Context(), uid)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, teams)
}

// GetTeam godoc
// @ID          getTeam
// @Summary     Fetch a team with its members
// @Description Members only; non-members receive 404.
// @Tags        Teams
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Team ID"
// @Success     200  {object}  handlers.TeamDetailResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Team not found"
// @Router      /teams/{id} [get]
func (h *Handlers) GetTeam(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	ctx := c.Request.Context()
	team, err := h.Teams.Get(ctx, uid, c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	members, err := h.Teams.Members(ctx, uid, team.ID)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, TeamDetailResponse{Team: team, Members: members})
}

// UpdateTeam godoc
// @ID          updateTeam
// @Summary     Rename a team
// @Description Requires ADMIN or OWNER role.
// @Tags        Teams
// @Accept      json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Team ID"
// @Param       body       body    handlers.UpdateTeamRequest  true  "New name"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /teams/{id} [put]
func (h *Handlers) UpdateTeam(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required")
		return
	}
	if err := h.Teams.UpdateName(c.Request.Context(), uid, c.Param("id"), req.Name); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

// DeleteTeam godoc
// @ID          deleteTeam
// @Summary     Delete a team
// @Description Soft delete. OWNER only.
// @Tags        Teams
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Team ID"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /teams/{id} [delete]
func (h *Handlers) DeleteTeam(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.Teams.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

// AddTeamMember godoc
// @ID          addTeamMember
// @Summary     Add a member to a team
// @Description Requires ADMIN or OWNER. Role defaults to MEMBER; a previously
// @Description removed member is restored.
// @Tags        Teams
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Team ID"
// @Param       body       body    handlers.AddMemberRequest  true  "Member payload"
// @Success     201  {object}  domain.TeamMember
// @Failure     409  {object}  handlers.ErrorResponse  "Already a member"
// @Router      /teams/{id}/members [post]
func (h *Handlers) AddTeamMember(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id required")
		return
	}
	m, err := h.Teams.AddMember(c.Request.Context(), uid, c.Param("id"), req.UserID, req.Role)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, m)
}

// RemoveTeamMember godoc
// @ID          removeTeamMember
// @Summary     Remove a member from a team
// @Description ADMIN may remove MEMBERs; OWNER may remove anyone but themselves.
// @Tags        Teams
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Team ID"
// @Param       userId     path    string  true  "Member user ID"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /teams/{id}/members/{userId} [delete]
func (h *Handlers) RemoveTeamMember(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.Teams.RemoveMember(c.Request.Context(), uid, c.Param("id"), c.Param("userId")); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

// ChangeTeamMemberRole godoc
// @ID          changeTeamMemberRole
// @Summary     Change a member's role
// @Description OWNER only. Assigning OWNER transfers ownership and demotes the
// @Description caller to ADMIN.
// @Tags        Teams
// @Accept      json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Team ID"
// @Param       userId     path    string  true  "Member user ID"
// @Param       body       body    handlers.ChangeRoleRequest  true  "New role"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid role"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /teams/{id}/members/{userId}/role [put]
func (h *Handlers) ChangeTeamMemberRole(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role required")
		return
	}
	if err := h.Teams.ChangeRole(c.Request.Context(), uid, c.Param("id"), c.Param("userId"), req.Role); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}
