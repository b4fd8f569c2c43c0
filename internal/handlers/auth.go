package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/config"
	"github.com/example/vastra/internal/middleware"
	"github.com/example/vastra/internal/models"
	"github.com/example/vastra/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db        *gorm.DB
	cfg       *config.Config
	validator *validator.Validate
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, v *validator.Validate) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, validator: v}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register creates a new customer account.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.Customer
	if err := h.db.Where("email = ?", email).First(&existing).Error; err == nil {
		if existing.PasswordHash != "" {
			return fiber.NewError(fiber.StatusConflict, "account already exists")
		}
		// customer record created at guest checkout; attach credentials
		passwordHash, err := utils.HashPassword(req.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
		}
		updates := map[string]interface{}{
			"password_hash": passwordHash,
			"name":          req.Name,
		}
		if req.Phone != "" {
			updates["phone"] = req.Phone
		}
		if err := h.db.Model(&existing).Updates(updates).Error; err != nil {
			return err
		}
		return h.issueToken(c, &existing, fiber.StatusOK)
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	customer := models.Customer{
		Email:        email,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: passwordHash,
	}

	if err := h.db.Create(&customer).Error; err != nil {
		return err
	}

	return h.issueToken(c, &customer, fiber.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates an existing customer.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var customer models.Customer
	if err := h.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if !utils.CheckPassword(customer.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	return h.issueToken(c, &customer, fiber.StatusOK)
}

// Me returns the authenticated customer.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", customerID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
		"id":           customer.ID,
		"email":        customer.Email,
		"name":         customer.Name,
		"phone":        customer.Phone,
		"total_orders": customer.TotalOrders,
		"total_spent":  customer.TotalSpent,
	}})
}

func (h *AuthHandler) issueToken(c *fiber.Ctx, customer *models.Customer, status int) error {
	token, err := utils.GenerateToken(h.cfg.JWTSecret, customer.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":    customer.ID,
			"email": customer.Email,
			"name":  customer.Name,
		},
		"token": token,
	})
}
