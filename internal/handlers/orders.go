package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/middleware"
	"github.com/example/vastra/internal/models"
	"github.com/example/vastra/internal/services"
	"github.com/example/vastra/internal/utils"
)

// OrdersHandler manages checkout and order endpoints.
type OrdersHandler struct {
	db        *gorm.DB
	checkout  *services.CheckoutService
	validator *validator.Validate
}

// NewOrdersHandler constructs OrdersHandler.
func NewOrdersHandler(db *gorm.DB, checkout *services.CheckoutService, v *validator.Validate) *OrdersHandler {
	return &OrdersHandler{db: db, checkout: checkout, validator: v}
}

type checkoutItemRequest struct {
	ProductID   string  `json:"product_id" validate:"required,uuid"`
	ProductName string  `json:"product_name" validate:"required"`
	Category    string  `json:"category"`
	Size        string  `json:"size"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"required,gt=0"`
}

type checkoutRequest struct {
	Email           string                `json:"email" validate:"required,email"`
	Name            string                `json:"name" validate:"required"`
	Phone           string                `json:"phone" validate:"required"`
	ShippingAddress string                `json:"shipping_address" validate:"required"`
	ShippingCity    string                `json:"shipping_city" validate:"required"`
	ShippingState   string                `json:"shipping_state"`
	ShippingPostal  string                `json:"shipping_postal" validate:"required"`
	PaymentMethod   string                `json:"payment_method" validate:"required"`
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	OfferID         string                `json:"offer_id"`
	CouponCode      string                `json:"coupon_code"`
	Notes           string                `json:"notes"`
}

// CreateOrder runs the checkout saga. The response carries the created order
// plus warnings for any post-order step that failed.
func (h *OrdersHandler) CreateOrder(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	checkout := services.CheckoutRequest{
		Email:           req.Email,
		Name:            req.Name,
		Phone:           req.Phone,
		ShippingAddress: req.ShippingAddress,
		ShippingCity:    req.ShippingCity,
		ShippingState:   req.ShippingState,
		ShippingPostal:  req.ShippingPostal,
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      req.CouponCode,
		Notes:           req.Notes,
	}

	if customerID, ok := middleware.GetCurrentUserID(c); ok {
		checkout.CustomerID = &customerID
	}

	if req.OfferID != "" {
		id, err := uuid.Parse(req.OfferID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid offer_id")
		}
		checkout.OfferID = &id
	}

	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product_id")
		}
		checkout.Items = append(checkout.Items, services.CheckoutItem{
			ProductID:   productID,
			ProductName: item.ProductName,
			Category:    item.Category,
			Size:        item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	result, err := h.checkout.PlaceOrder(c.Context(), checkout)
	if err != nil {
		return err
	}

	response := fiber.Map{"success": true, "data": result.Order}
	if len(result.Warnings) > 0 {
		response["warnings"] = result.Warnings
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

// ListOrders returns orders for the authenticated customer.
func (h *OrdersHandler) ListOrders(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Where("customer_id = ?", customerID).Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOrder returns a single order for the authenticated customer.
func (h *OrdersHandler) GetOrder(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").
		First(&order, "id = ? AND customer_id = ?", id, customerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.ErrOrderNotFound
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// AdminListOrders returns all orders with optional status filter.
func (h *OrdersHandler) AdminListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type updateOrderRequest struct {
	Status        *string `json:"status" validate:"omitempty,oneof=pending confirmed processing shipped delivered cancelled"`
	PaymentStatus *string `json:"payment_status" validate:"omitempty,oneof=pending paid refunded"`
	Notes         *string `json:"notes"`
}

// AdminUpdateOrder mutates status, payment status and notes; nothing else on
// an order changes after creation. No transition rules: an authorized caller
// may set any status from any status.
func (h *OrdersHandler) AdminUpdateOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var current models.Order
	if err := h.db.First(&current, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.ErrOrderNotFound
		}
		return err
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.PaymentStatus != nil {
		updates["payment_status"] = *req.PaymentStatus
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	if err := h.db.Model(&current).Updates(updates).Error; err != nil {
		return err
	}

	var order models.Order
	if err := h.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}
