package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/models"
	"github.com/example/vastra/internal/services"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db       *gorm.DB
	checkout *services.CheckoutService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, checkout *services.CheckoutService) *AdminHandler {
	return &AdminHandler{db: db, checkout: checkout}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var totalCustomers int64
	if err := h.db.Model(&models.Customer{}).Count(&totalCustomers).Error; err != nil {
		return err
	}

	var totalOrders int64
	if err := h.db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return err
	}

	// Orders by status
	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var statusCounts []statusCount
	if err := h.db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}

	ordersByStatus := make(map[string]int64)
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	// Total revenue (sum of total for non-cancelled orders)
	var totalRevenue float64
	if err := h.db.Model(&models.Order{}).
		Where("status != ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total), 0)").
		Scan(&totalRevenue).Error; err != nil {
		return err
	}

	// Coin economy totals
	var coinsIssued, coinsSpent int64
	if err := h.db.Model(&models.CoinTransaction{}).
		Where("amount > 0").
		Select("COALESCE(SUM(amount), 0)").
		Scan(&coinsIssued).Error; err != nil {
		return err
	}
	if err := h.db.Model(&models.CoinTransaction{}).
		Where("amount < 0").
		Select("COALESCE(-SUM(amount), 0)").
		Scan(&coinsSpent).Error; err != nil {
		return err
	}

	var pendingReconciliations int64
	if err := h.db.Model(&models.ReconciliationTask{}).
		Where("status <> ?", models.ReconStatusDone).
		Count(&pendingReconciliations).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_customers":         totalCustomers,
			"total_orders":            totalOrders,
			"orders_by_status":        ordersByStatus,
			"total_revenue":           totalRevenue,
			"coins_issued":            coinsIssued,
			"coins_spent":             coinsSpent,
			"pending_reconciliations": pendingReconciliations,
		},
	})
}

// ListCustomers returns all customers for the admin back-office.
func (h *AdminHandler) ListCustomers(c *fiber.Ctx) error {
	var customers []models.Customer
	if err := h.db.Order("created_at desc").Find(&customers).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": customers})
}

// ListReconciliationTasks returns saga steps that still need attention.
func (h *AdminHandler) ListReconciliationTasks(c *fiber.Ctx) error {
	tasks, err := h.checkout.PendingTasks(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": tasks})
}

// RetryReconciliationTask re-runs one failed saga step.
func (h *AdminHandler) RetryReconciliationTask(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	task, retryErr := h.checkout.RetryTask(c.Context(), id)
	if task == nil {
		return retryErr
	}

	response := fiber.Map{"success": true, "data": task}
	if retryErr != nil {
		response["warning"] = retryErr.Error()
	}
	return c.JSON(response)
}
