package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/vastra/internal/services"
)

// CoinsHandler exposes the coin wallet and its ledger.
type CoinsHandler struct {
	wallets   *services.WalletService
	validator *validator.Validate
}

// NewCoinsHandler constructs CoinsHandler.
func NewCoinsHandler(wallets *services.WalletService, v *validator.Validate) *CoinsHandler {
	return &CoinsHandler{wallets: wallets, validator: v}
}

// GetCoins returns either the wallet or, with transactions=true, the ledger
// history for a customer. The first balance lookup grants the welcome bonus.
func (h *CoinsHandler) GetCoins(c *fiber.Ctx) error {
	customerID, err := uuid.Parse(c.Query("customerId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "customerId is required")
	}

	if c.Query("transactions") == "true" {
		limit := 0
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		transactions, err := h.wallets.TransactionHistory(c.Context(), customerID, limit)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": transactions})
	}

	wallet, err := h.wallets.GetBalance(c.Context(), customerID, c.Query("email"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": wallet})
}

type coinOptionsRequest struct {
	OrderID       string  `json:"orderId"`
	PaymentMethod string  `json:"paymentMethod"`
	PaymentAmount float64 `json:"paymentAmount"`
	GiftedBy      string  `json:"giftedBy"`
	Type          string  `json:"type"`
}

// mutateCoinsRequest is the tagged-union body for POST /api/coins.
type mutateCoinsRequest struct {
	Action        string             `json:"action" validate:"required,oneof=add deduct"`
	CustomerID    string             `json:"customerId" validate:"required,uuid"`
	CustomerEmail string             `json:"customerEmail"`
	Amount        int                `json:"amount" validate:"required,gt=0"`
	Description   string             `json:"description" validate:"required"`
	Options       coinOptionsRequest `json:"options"`
}

// MutateCoins adds or deducts coins depending on the action tag.
func (h *CoinsHandler) MutateCoins(c *fiber.Ctx) error {
	var req mutateCoinsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid customerId")
	}

	var orderID *uuid.UUID
	if req.Options.OrderID != "" {
		if id, err := uuid.Parse(req.Options.OrderID); err == nil {
			orderID = &id
		}
	}

	switch req.Action {
	case "add":
		txType := req.Options.Type
		if txType == "" {
			txType = "gift"
		}
		wallet, err := h.wallets.AddCoins(c.Context(), customerID, req.CustomerEmail, req.Amount, txType, req.Description, services.CoinOptions{
			OrderID:       orderID,
			PaymentMethod: req.Options.PaymentMethod,
			PaymentAmount: req.Options.PaymentAmount,
			GiftedBy:      req.Options.GiftedBy,
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": wallet})

	case "deduct":
		wallet, err := h.wallets.DeductCoins(c.Context(), customerID, req.Amount, req.Description, orderID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": wallet})
	}

	return fiber.NewError(fiber.StatusBadRequest, "unknown action")
}

// ListWallets returns all wallets sorted by balance, for the admin dashboard.
func (h *CoinsHandler) ListWallets(c *fiber.Ctx) error {
	wallets, err := h.wallets.ListWallets(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": wallets})
}
