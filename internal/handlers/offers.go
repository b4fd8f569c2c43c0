package handlers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/vastra/internal/models"
	"github.com/example/vastra/internal/services"
)

// OffersHandler exposes offer administration and the public eligibility check.
type OffersHandler struct {
	offers    *services.OfferService
	validator *validator.Validate
}

// NewOffersHandler constructs OffersHandler.
func NewOffersHandler(offers *services.OfferService, v *validator.Validate) *OffersHandler {
	return &OffersHandler{offers: offers, validator: v}
}

// ListOffers returns all offers, or only currently redeemable ones with
// ?active=true.
func (h *OffersHandler) ListOffers(c *fiber.Ctx) error {
	if c.Query("active") == "true" {
		offers, err := h.offers.ActiveOffers(c.Context(), time.Now())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": offers})
	}

	offers, err := h.offers.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": offers})
}

func (h *OffersHandler) GetOffer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	offer, err := h.offers.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": offer})
}

type offerRequest struct {
	Name              string    `json:"name" validate:"required"`
	Type              string    `json:"type" validate:"required,oneof=product combo payment_method category sitewide"`
	DiscountType      string    `json:"discount_type" validate:"required,oneof=percentage fixed coins"`
	DiscountValue     float64   `json:"discount_value" validate:"required,gt=0"`
	ProductIDs        []string  `json:"product_ids"`
	PaymentMethods    []string  `json:"payment_methods"`
	Categories        []string  `json:"categories"`
	MinPurchaseAmount float64   `json:"min_purchase_amount"`
	MaxDiscountAmount float64   `json:"max_discount_amount"`
	UsageLimit        *int      `json:"usage_limit"`
	PerCustomerLimit  *int      `json:"per_customer_limit"`
	StartDate         time.Time `json:"start_date" validate:"required"`
	EndDate           time.Time `json:"end_date" validate:"required"`
	IsActive          bool      `json:"is_active"`
	Code              string    `json:"code"`
	Priority          int       `json:"priority"`
}

func (r *offerRequest) toModel() *models.Offer {
	return &models.Offer{
		Name:              r.Name,
		Type:              r.Type,
		DiscountType:      r.DiscountType,
		DiscountValue:     r.DiscountValue,
		ProductIDs:        r.ProductIDs,
		PaymentMethods:    r.PaymentMethods,
		Categories:        r.Categories,
		MinPurchaseAmount: r.MinPurchaseAmount,
		MaxDiscountAmount: r.MaxDiscountAmount,
		UsageLimit:        r.UsageLimit,
		PerCustomerLimit:  r.PerCustomerLimit,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		IsActive:          r.IsActive,
		Code:              r.Code,
		Priority:          r.Priority,
	}
}

// CreateOffer creates an offer definition.
func (h *OffersHandler) CreateOffer(c *fiber.Ctx) error {
	var req offerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	offer := req.toModel()
	if err := h.offers.Create(c.Context(), offer); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": offer})
}

// UpdateOffer replaces an offer's definition. The usage counter is preserved.
func (h *OffersHandler) UpdateOffer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req offerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	offer, err := h.offers.Update(c.Context(), id, req.toModel())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": offer})
}

type patchOfferRequest struct {
	Action string `json:"action" validate:"required,oneof=toggle"`
}

// PatchOffer handles action-style mutations; currently only toggle.
func (h *OffersHandler) PatchOffer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req patchOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	offer, err := h.offers.Toggle(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": offer})
}

func (h *OffersHandler) DeleteOffer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.offers.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListOfferUsages returns the redemption history of an offer.
func (h *OffersHandler) ListOfferUsages(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	usages, err := h.offers.UsagesForOffer(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": usages})
}

type checkItemRequest struct {
	ProductID string  `json:"product_id"`
	Category  string  `json:"category"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type checkOfferRequest struct {
	OfferID       string             `json:"offer_id"`
	Code          string             `json:"code"`
	Subtotal      float64            `json:"subtotal" validate:"required,gt=0"`
	PaymentMethod string             `json:"payment_method"`
	Items         []checkItemRequest `json:"items"`
}

// CheckOffer runs the eligibility engine for a cart, by offer id or coupon
// code, and reports the discount that would apply.
func (h *OffersHandler) CheckOffer(c *fiber.Ctx) error {
	var req checkOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var offer *models.Offer
	var err error
	switch {
	case req.Code != "":
		offer, err = h.offers.FindByCode(c.Context(), req.Code)
	case req.OfferID != "":
		var id uuid.UUID
		if id, err = uuid.Parse(req.OfferID); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid offer_id")
		}
		offer, err = h.offers.Get(c.Context(), id)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "offer_id or code is required")
	}
	if err != nil {
		return err
	}

	lines := make([]services.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, services.CartLine{
			ProductID: item.ProductID,
			Category:  item.Category,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	result := services.CheckOfferEligibility(*offer, req.Subtotal, req.PaymentMethod, lines, time.Now())
	response := fiber.Map{
		"eligible": result.Eligible,
		"offer_id": offer.ID,
	}
	if result.Eligible {
		response["discount"] = services.CalculateDiscount(*offer, req.Subtotal)
	} else {
		response["reason"] = result.Reason
	}

	return c.JSON(fiber.Map{"success": true, "data": response})
}
