package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/vastra/internal/middleware"
	"github.com/example/vastra/internal/services"
)

// NotificationsHandler exposes the in-app notification inbox and the admin
// fan-out endpoint.
type NotificationsHandler struct {
	notifications *services.NotificationService
	validator     *validator.Validate
}

// NewNotificationsHandler constructs NotificationsHandler.
func NewNotificationsHandler(notifications *services.NotificationService, v *validator.Validate) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications, validator: v}
}

// ListNotifications returns the authenticated customer's inbox.
func (h *NotificationsHandler) ListNotifications(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	items, err := h.notifications.ListForCustomer(c.Context(), customerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

// MarkRead marks one notification as read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.notifications.MarkRead(c.Context(), id, customerID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "notification marked read"})
}

// sendNotificationRequest is the tagged-union admin body: the action tag
// selects which recipient fields are required.
type sendNotificationRequest struct {
	Action      string   `json:"action" validate:"required,oneof=broadcast sendToOne sendToMultiple"`
	CustomerID  string   `json:"customerId" validate:"required_if=Action sendToOne,omitempty,uuid"`
	CustomerIDs []string `json:"customerIds" validate:"required_if=Action sendToMultiple,omitempty,dive,uuid"`
	Title       string   `json:"title" validate:"required"`
	Message     string   `json:"message" validate:"required"`
	Type        string   `json:"type" validate:"omitempty,oneof=info order promotion coins"`
}

// Send dispatches notifications according to the action tag. Broadcast and
// multi-send tolerate partial failure and report the delivered count.
func (h *NotificationsHandler) Send(c *fiber.Ctx) error {
	var req sendNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	switch req.Action {
	case "broadcast":
		success, total, err := h.notifications.Broadcast(c.Context(), req.Title, req.Message, req.Type)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
			"success_count": success,
			"total":         total,
		}})

	case "sendToOne":
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid customerId")
		}
		notification, err := h.notifications.Create(c.Context(), customerID, req.Title, req.Message, req.Type)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": notification})

	case "sendToMultiple":
		ids := make([]uuid.UUID, 0, len(req.CustomerIDs))
		for _, raw := range req.CustomerIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid customerIds entry")
			}
			ids = append(ids, id)
		}
		success, err := h.notifications.SendToMultiple(c.Context(), ids, req.Title, req.Message, req.Type)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
			"success_count": success,
			"total":         len(ids),
		}})
	}

	return fiber.NewError(fiber.StatusBadRequest, "unknown action")
}
