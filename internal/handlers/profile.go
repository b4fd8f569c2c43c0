package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/middleware"
	"github.com/example/vastra/internal/models"
)

// ProfileHandler manages customer profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

type updateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UpdateProfile updates customer profile fields.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}
	updates["updated_at"] = time.Now()

	if err := h.db.Model(&models.Customer{}).Where("id = ?", customerID).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "profile updated"})
}

// Address endpoints

// ListAddresses returns customer addresses.
func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var addresses []models.CustomerAddress
	if err := h.db.Where("customer_id = ?", customerID).Find(&addresses).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": addresses})
}

type addressRequest struct {
	Label       string `json:"label"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	IsDefault   bool   `json:"is_default"`
}

// CreateAddress creates an address. The first address, or one flagged as
// default, becomes the single default.
func (h *ProfileHandler) CreateAddress(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	address := models.CustomerAddress{
		CustomerID:  customerID,
		Label:       req.Label,
		AddressLine: req.AddressLine,
		City:        req.City,
		State:       req.State,
		PostalCode:  req.PostalCode,
		IsDefault:   req.IsDefault,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.CustomerAddress{}).
			Where("customer_id = ?", customerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			address.IsDefault = true
		}
		if address.IsDefault {
			if err := tx.Model(&models.CustomerAddress{}).
				Where("customer_id = ?", customerID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": address})
}

// UpdateAddress updates an address; flagging it default clears the others.
func (h *ProfileHandler) UpdateAddress(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	addrID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var address models.CustomerAddress
	if err := h.db.First(&address, "id = ? AND customer_id = ?", addrID, customerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "address not found")
		}
		return err
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault && !address.IsDefault {
			if err := tx.Model(&models.CustomerAddress{}).
				Where("customer_id = ?", customerID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}

		address.Label = req.Label
		address.AddressLine = req.AddressLine
		address.City = req.City
		address.State = req.State
		address.PostalCode = req.PostalCode
		// the default flag can only move to another address, never be unset
		if req.IsDefault {
			address.IsDefault = true
		}
		return tx.Save(&address).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": address})
}

// DeleteAddress removes an address; if it was the default, the oldest
// remaining address becomes the default.
func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	addrID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var address models.CustomerAddress
		if err := tx.First(&address, "id = ? AND customer_id = ?", addrID, customerID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "address not found")
		}

		if err := tx.Delete(&address).Error; err != nil {
			return err
		}

		if address.IsDefault {
			var next models.CustomerAddress
			if err := tx.Where("customer_id = ?", customerID).
				Order("created_at asc").
				First(&next).Error; err == nil {
				return tx.Model(&next).Update("is_default", true).Error
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Wishlist endpoints

// ListWishlist returns the customer's wishlist.
func (h *ProfileHandler) ListWishlist(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var items []models.WishlistItem
	if err := h.db.Where("customer_id = ?", customerID).Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

type wishlistRequest struct {
	ProductID string `json:"product_id"`
}

// AddToWishlist adds a product to the wishlist. Re-adding is a no-op.
func (h *ProfileHandler) AddToWishlist(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req wishlistRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product_id")
	}

	var existing models.WishlistItem
	if err := h.db.Where("customer_id = ? AND product_id = ?", customerID, productID).
		First(&existing).Error; err == nil {
		return c.JSON(fiber.Map{"success": true, "data": existing})
	}

	item := models.WishlistItem{CustomerID: customerID, ProductID: productID}
	if err := h.db.Create(&item).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

// RemoveFromWishlist removes a wishlist entry.
func (h *ProfileHandler) RemoveFromWishlist(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	if err := h.db.Delete(&models.WishlistItem{}, "customer_id = ? AND product_id = ?", customerID, productID).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Saved cart endpoints

// GetCart returns the customer's saved cart rows.
func (h *ProfileHandler) GetCart(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var items []models.CartItem
	if err := h.db.Where("customer_id = ?", customerID).Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type putCartRequest struct {
	Items []cartItemRequest `json:"items"`
}

// PutCart replaces the saved cart.
func (h *ProfileHandler) PutCart(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req putCartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	items := make([]models.CartItem, 0, len(req.Items))
	for _, r := range req.Items {
		productID, err := uuid.Parse(r.ProductID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product_id")
		}
		if r.Quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "quantity must be positive")
		}
		items = append(items, models.CartItem{
			CustomerID: customerID,
			ProductID:  productID,
			Size:       r.Size,
			Quantity:   r.Quantity,
		})
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.CartItem{}, "customer_id = ?", customerID).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": items})
}
