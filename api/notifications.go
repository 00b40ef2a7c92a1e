package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ansingh0305/BroCab/internal/service/notifications"
)

type NotificationHandler struct {
	service notifications.NotificationUseCase
}

type notificationResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	RideID    int64  `json:"ride_id"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

func NewNotificationHandler(service notifications.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) Register(router *gin.RouterGroup) {
	router.GET("/user/notifications", h.list)
	router.GET("/user/notifications/unread", h.unread)
	router.POST("/notification/:notificationID/read", h.markRead)
	router.PUT("/user/notifications/read-all", h.markAllRead)
}

func (h *NotificationHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]notificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			RideID:    n.RideID,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

func (h *NotificationHandler) unread(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *NotificationHandler) markRead(c *gin.Context) {
	id, ok := pathID(c, "notificationID")
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), id, currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification read"})
}

func (h *NotificationHandler) markAllRead(c *gin.Context) {
	updated, err := h.service.MarkAllRead(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all notifications read", "updated": updated})
}
