package notifications

import (
	notifsvc "insurledger-backend/internal/application/notifications"
	"insurledger-backend/internal/middleware"
	"insurledger-backend/internal/pkg/request"
	"insurledger-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *notifsvc.Service
}

// GET /api/v1/notifications?unread=true
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.ListForActor(c.UserContext(), middleware.GetActor(c), c.QueryBool("unread"))
	if err != nil {
		return err
	}
	return response.List(c, "Notifications fetched successfully", list, nil)
}

// POST /api/v1/notifications/:notification_id/read
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	id, err := request.ID(c, "notification_id")
	if err != nil {
		return err
	}
	n, err := h.Service.MarkRead(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Notification marked as read", n, nil)
}
