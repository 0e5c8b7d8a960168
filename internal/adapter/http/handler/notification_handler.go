package handler

import (
	"insurance-settlement/internal/adapter/http/dto"
	"insurance-settlement/internal/adapter/http/middleware"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"
	"insurance-settlement/pkg/response"

	"github.com/gin-gonic/gin"
)

// NotificationHandler lists the actor's notifications.
type NotificationHandler struct {
	notificationSvc ports.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationSvc ports.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// List handles GET /api/v1/notifications?limit=N.
func (h *NotificationHandler) List(c *gin.Context) {
	actorID, ok := middleware.ActorIDFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	notifications, err := h.notificationSvc.List(c.Request.Context(), actorID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, dto.NotificationResponse{
			ID:        n.ID.String(),
			SenderID:  uuidString(n.SenderID),
			Event:     string(n.Event),
			Message:   n.Message,
			CreatedAt: n.CreatedAt.Format(timeLayout),
		})
	}
	response.OK(c, items)
}
