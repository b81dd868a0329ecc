package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/util"
)

// ListNotifications handles GET /api/v1/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	page, limit := util.PageParams(c)
	unreadOnly := c.Query("unread") == "true"

	rows, total, err := h.notifications.List(c.Request.Context(), userID, unreadOnly, page, limit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.RespondPage(c, "notifications", rows, util.NewPagination(total, page, limit))
}

// NotificationCounts handles GET /api/v1/notifications/counts
func (h *Handlers) NotificationCounts(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}

	unread, unseen, err := h.notifications.Counts(c.Request.Context(), userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "", gin.H{"unread": unread, "unseen": unseen})
}

// MarkNotificationsRead handles POST /api/v1/notifications/read. An empty
// id list marks everything read.
func (h *Handlers) MarkNotificationsRead(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}

	var req struct {
		IDs []uint64 `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("ids", "ids must be a list of notification ids"))
		return
	}

	updated, err := h.notifications.MarkRead(c.Request.Context(), userID, req.IDs)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "notifications marked read", gin.H{"updated": updated})
}

// MarkNotificationsSeen handles POST /api/v1/notifications/seen
func (h *Handlers) MarkNotificationsSeen(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}

	updated, err := h.notifications.MarkSeen(c.Request.Context(), userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "notifications marked seen", gin.H{"updated": updated})
}
