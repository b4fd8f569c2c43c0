package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/models"
	"github.com/example/vastra/internal/services"
	"github.com/example/vastra/internal/utils"
)

// ProductsHandler manages the catalog and stock.
type ProductsHandler struct {
	db        *gorm.DB
	products  *services.ProductService
	validator *validator.Validate
}

// NewProductsHandler constructs ProductsHandler.
func NewProductsHandler(db *gorm.DB, products *services.ProductService, v *validator.Validate) *ProductsHandler {
	return &ProductsHandler{db: db, products: products, validator: v}
}

// ListProducts returns paginated products with optional filters.
func (h *ProductsHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Product{}).Where("is_active = ?", true)

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", q, q)
	}

	if minPrice := c.Query("min_price"); minPrice != "" {
		if val, err := strconv.ParseFloat(minPrice, 64); err == nil {
			query = query.Where("base_price >= ?", val)
		}
	}

	if maxPrice := c.Query("max_price"); maxPrice != "" {
		if val, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			query = query.Where("base_price <= ?", val)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Preload("Stock").
		Limit(pg.Limit).Offset(pg.Offset).
		Order("created_at desc").
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetProduct loads a product with its stock rows.
func (h *ProductsHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	product, err := h.products.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

type productRequest struct {
	Slug        string   `json:"slug" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category" validate:"required"`
	BasePrice   float64  `json:"base_price" validate:"required,gt=0"`
	Currency    string   `json:"currency"`
	ImageURL    string   `json:"image_url"`
	Tags        []string `json:"tags"`
	IsActive    *bool    `json:"is_active"`
}

// CreateProduct creates a catalog entry.
func (h *ProductsHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	product := models.Product{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		BasePrice:   req.BasePrice,
		Currency:    req.Currency,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
		IsActive:    true,
	}
	if product.Currency == "" {
		product.Currency = "INR"
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.db.Create(&product).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// UpdateProduct replaces the mutable catalog fields.
func (h *ProductsHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return services.ErrProductNotFound
		}
		return err
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	product.Slug = req.Slug
	product.Name = req.Name
	product.Description = req.Description
	product.Category = req.Category
	product.BasePrice = req.BasePrice
	product.ImageURL = req.ImageURL
	product.Tags = req.Tags
	if req.Currency != "" {
		product.Currency = req.Currency
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.db.Save(&product).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// DeleteProduct removes a catalog entry.
func (h *ProductsHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	res := h.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrProductNotFound
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type adjustStockRequest struct {
	Size  string `json:"size"`
	Delta int    `json:"delta" validate:"required"`
}

// AdjustStock adds or removes stock for one product size.
func (h *ProductsHandler) AdjustStock(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req adjustStockRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	stock, err := h.products.AdjustStock(c.Context(), id, req.Size, req.Delta)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stock})
}
