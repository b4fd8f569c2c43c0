package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/vastra/internal/services"
)

// ErrorHandler translates service errors into the {success:false, error}
// envelope every response uses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	var validationErr *services.ValidationError
	var ineligibleErr *services.IneligibleOfferError

	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
	case errors.As(err, &validationErr):
		code = fiber.StatusBadRequest
		message = validationErr.Message
	case errors.As(err, &ineligibleErr):
		code = fiber.StatusBadRequest
		message = ineligibleErr.Reason
	case errors.Is(err, services.ErrInvalidAmount):
		code = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrInsufficientStock):
		code = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, services.ErrAuthRequired):
		code = fiber.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, services.ErrWalletNotFound),
		errors.Is(err, services.ErrOfferNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrCustomerNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		code = fiber.StatusNotFound
		message = err.Error()
	}

	return c.Status(code).JSON(fiber.Map{"success": false, "error": message})
}
