package httpapi

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"

	"github.com/justxchange/go-backend/internal/notification"
)

// NotificationController exposes the ledger over HTTP; the websocket
// subscribe/mark-as-read events are its realtime twin.
type NotificationController struct {
	notifications *notification.Service
}

// NewNotificationController wires the notification endpoints.
func NewNotificationController(service *notification.Service) *NotificationController {
	return &NotificationController{notifications: service}
}

// Unread returns the authenticated user's unread notifications, oldest first.
func (h *NotificationController) Unread(c *fiber.Ctx) error {
	claims, err := sessionClaims(c)
	if err != nil {
		return err
	}

	unread, err := h.notifications.Unread(c.Context(), claims.UserID())
	if err != nil {
		return err
	}

	return c.JSON(unread)
}

type markReadRequest struct {
	IDs []int64 `json:"ids"`
}

func (r markReadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required),
	)
}

// MarkRead acknowledges notifications and returns the refreshed unread set.
// Ids belonging to other users are silently ignored.
func (h *NotificationController) MarkRead(c *fiber.Ctx) error {
	claims, err := sessionClaims(c)
	if err != nil {
		return err
	}

	var req markReadRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	unread, err := h.notifications.MarkRead(c.Context(), claims.UserID(), req.IDs)
	if err != nil {
		return err
	}

	return c.JSON(unread)
}
