package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dispatch/internal/realtime"
	"dispatch/internal/service"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	unread := c.Query("unread") == "true"
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, fmt.Errorf("%w: limit must be a positive integer", service.ErrValidation))
			return
		}
		limit = n
	}

	list, err := h.notifications.List(c.Request.Context(), a, unread, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]realtime.NotificationPayload, 0, len(list))
	for _, n := range list {
		out = append(out, realtime.NewNotificationPayload(n))
	}
	respondJSON(c, http.StatusOK, gin.H{"notifications": out})
}

// UnreadCount handles GET /v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	n, err := h.notifications.UnreadCount(c.Request.Context(), a)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"count": n})
}

// MarkAllRead handles PATCH /v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), a)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"updated": n})
}

// MarkRead handles PATCH /v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), a, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{})
}
