// Notification HTTP handlers.
//
// This file exposes the caller's in-app notification inbox:
//   - GET    /notifications            (paginated, ?unread=true filters)
//   - POST   /notifications/{id}/read  (mark one as read, idempotent)
//   - POST   /notifications/read-all   (mark everything read)
//   - DELETE /notifications/{id}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MarkAllReadResponse reports how many notifications were marked.
type MarkAllReadResponse struct {
	Marked int64 `json:"marked"`
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List the caller's notifications
// @Description Newest first, with the unread total. Pass unread=true to list
// @Description only unread notifications.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Caller identity"
// @Param       unread     query   bool    false  "Only unread notifications"
// @Param       page       query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  services.Inbox
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	page, pageSize := clampPagination(c)
	unreadOnly := c.Query("unread") == "true"

	inbox, err := h.Notifs.List(c.Request.Context(), uid, unreadOnly, page, pageSize)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, inbox)
}

// MarkNotificationRead godoc
// @ID          markNotificationRead
// @Summary     Mark a notification as read
// @Description Idempotent; re-marking an already-read notification succeeds.
// @Tags        Notifications
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Notification ID"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /notifications/{id}/read [post]
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.Notifs.MarkRead(c.Request.Context(), uid, c.Param("id")); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}

// MarkAllNotificationsRead godoc
// @ID          markAllNotificationsRead
// @Summary     Mark all notifications as read
// @Tags        Notifications
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Success     200  {object}  handlers.MarkAllReadResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /notifications/read-all [post]
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	n, err := h.Notifs.MarkAllRead(c.Request.Context(), uid)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, MarkAllReadResponse{Marked: n})
}

// DeleteNotification godoc
// @ID          deleteNotification
// @Summary     Delete a notification
// @Tags        Notifications
// @Param       X-User-ID  header  string  true  "Caller identity"
// @Param       id         path    string  true  "Notification ID"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /notifications/{id} [delete]
func (h *Handlers) DeleteNotification(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.Notifs.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}
