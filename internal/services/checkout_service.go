package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/models"
	"github.com/example/vastra/internal/utils"
)

// PaymentCoins is the wallet payment method; other methods are accepted as-is
// because payment capture is simulated.
const PaymentCoins = "coins"

// CheckoutService orchestrates the order placement saga: customer upsert,
// order creation, coin deduction, stock decrement and offer usage recording.
// The order is the anchor: once it is created, downstream step failures are
// reported as warnings and queued as reconciliation tasks, never rolled back.
type CheckoutService struct {
	db            *gorm.DB
	wallets       *WalletService
	offers        *OfferService
	products      *ProductService
	notifications *NotificationService
	telegram      *TelegramService
}

func NewCheckoutService(db *gorm.DB, wallets *WalletService, offers *OfferService, products *ProductService, notifications *NotificationService, telegram *TelegramService) *CheckoutService {
	return &CheckoutService{
		db:            db,
		wallets:       wallets,
		offers:        offers,
		products:      products,
		notifications: notifications,
		telegram:      telegram,
	}
}

type CheckoutItem struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Category    string    `json:"category"`
	Size        string    `json:"size"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
}

type CheckoutRequest struct {
	CustomerID *uuid.UUID // set when the caller is authenticated

	Email string
	Name  string
	Phone string

	ShippingAddress string
	ShippingCity    string
	ShippingState   string
	ShippingPostal  string

	PaymentMethod string
	Items         []CheckoutItem
	OfferID       *uuid.UUID
	CouponCode    string
	Notes         string
}

type CheckoutResult struct {
	Order    *models.Order
	Warnings []string
}

// PlaceOrder runs the checkout saga. Validation and the coin balance check
// happen before any write; from order creation onward failures are non-fatal.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	subtotal := 0.0
	lines := make([]CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		subtotal += item.UnitPrice * float64(item.Quantity)
		lines = append(lines, CartLine{
			ProductID: item.ProductID.String(),
			Category:  item.Category,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	now := time.Now()

	offer, discount, err := s.resolveOffer(ctx, req, subtotal, lines, now)
	if err != nil {
		return nil, err
	}

	shipping := ShippingFee(subtotal)
	total := subtotal - discount + shipping

	// Coin payments are rejected before any write when the balance cannot
	// cover the total.
	var coinCost int
	if req.PaymentMethod == PaymentCoins {
		if req.CustomerID == nil {
			return nil, ErrAuthRequired
		}
		coinCost = CurrencyToCoins(total)
		wallet, err := s.wallets.GetBalance(ctx, *req.CustomerID, req.Email)
		if err != nil {
			return nil, err
		}
		if wallet.Balance < coinCost {
			return nil, ErrInsufficientBalance
		}
	}

	customer, err := s.upsertCustomer(ctx, req)
	if err != nil {
		return nil, err
	}

	order, err := s.createOrder(ctx, req, customer, offer, subtotal, discount, shipping, total, now)
	if err != nil {
		return nil, err
	}

	// The order exists; everything below is best-effort.
	var warnings []string

	if req.PaymentMethod == PaymentCoins {
		// the authenticated uid, not the upserted record, is the coin key
		_, err := s.wallets.DeductCoins(ctx, *req.CustomerID, coinCost, "Payment for order "+order.OrderNumber, &order.ID)
		if err != nil {
			warnings = append(warnings, "coin deduction failed: "+err.Error())
			s.enqueueTask(ctx, order.OrderNumber, models.ReconStepCoins, coinsPayload{
				CustomerID: *req.CustomerID,
				Amount:     coinCost,
				OrderID:    order.ID,
			}, err)
		}
	}

	// Failed stock items are collected into a single task: the outbox is
	// unique on (order number, step), so a second enqueue would be dropped.
	var failedStock []stockPayloadItem
	var stockErr error
	for _, item := range req.Items {
		if err := s.products.DecrementStock(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
			warnings = append(warnings, fmt.Sprintf("stock update failed for %s: %v", item.ProductName, err))
			failedStock = append(failedStock, stockPayloadItem{ProductID: item.ProductID, Size: item.Size, Quantity: item.Quantity})
			stockErr = err
		}
	}
	if len(failedStock) > 0 {
		s.enqueueTask(ctx, order.OrderNumber, models.ReconStepStock, stockPayload{Items: failedStock}, stockErr)
	}

	if offer != nil {
		if err := s.offers.RecordUsage(ctx, offer.ID, customer.ID, customer.Email, order.ID, discount); err != nil {
			warnings = append(warnings, "offer usage recording failed: "+err.Error())
			s.enqueueTask(ctx, order.OrderNumber, models.ReconStepOffer, offerPayload{
				OfferID:    offer.ID,
				CustomerID: customer.ID,
				Email:      customer.Email,
				OrderID:    order.ID,
				Discount:   discount,
			}, err)
		}
	}

	if err := s.bumpCustomerTotals(ctx, customer.ID, total); err != nil {
		log.Printf("[Checkout] failed to update customer totals for %s: %v", customer.ID, err)
	}

	if _, err := s.notifications.Create(ctx, customer.ID,
		"Order confirmed",
		fmt.Sprintf("Your order %s has been confirmed.", order.OrderNumber),
		models.NotificationOrder); err != nil {
		log.Printf("[Checkout] order notification failed for %s: %v", customer.ID, err)
	}

	if s.telegram != nil {
		go s.notifyAdmin(*order, customer)
	}

	return &CheckoutResult{Order: order, Warnings: warnings}, nil
}

func validateCheckout(req CheckoutRequest) error {
	if len(req.Items) == 0 {
		return validationErrorf("order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return validationErrorf("item quantity must be positive")
		}
	}
	if strings.TrimSpace(req.Email) == "" {
		return validationErrorf("email is required")
	}

	required := map[string]string{
		"name":        req.Name,
		"phone":       req.Phone,
		"address":     req.ShippingAddress,
		"city":        req.ShippingCity,
		"postal code": req.ShippingPostal,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return validationErrorf("shipping %s is required", field)
		}
	}
	return nil
}

// resolveOffer loads the selected offer (by ID or coupon code), re-checks
// eligibility server-side and returns the discount to apply.
func (s *CheckoutService) resolveOffer(ctx context.Context, req CheckoutRequest, subtotal float64, lines []CartLine, now time.Time) (*models.Offer, float64, error) {
	var offer *models.Offer
	var err error

	switch {
	case req.OfferID != nil:
		offer, err = s.offers.Get(ctx, *req.OfferID)
	case req.CouponCode != "":
		offer, err = s.offers.FindByCode(ctx, req.CouponCode)
	default:
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	if result := CheckOfferEligibility(*offer, subtotal, req.PaymentMethod, lines, now); !result.Eligible {
		return nil, 0, &IneligibleOfferError{Reason: result.Reason}
	}

	// Per-customer cap applies only to customers we already know about.
	if existing, ferr := s.findCustomerByEmail(ctx, req.Email); ferr == nil {
		if cerr := s.offers.CanCustomerUseOffer(ctx, offer.ID, existing.ID, now); cerr != nil {
			return nil, 0, cerr
		}
	}

	return offer, CalculateDiscount(*offer, subtotal), nil
}

func (s *CheckoutService) findCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// upsertCustomer resolves the customer by lowercased email, creating the
// record on first contact. Idempotent.
func (s *CheckoutService) upsertCustomer(ctx context.Context, req CheckoutRequest) (*models.Customer, error) {
	existing, err := s.findCustomerByEmail(ctx, req.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return nil, err
	}

	customer := models.Customer{
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Name:  req.Name,
		Phone: req.Phone,
	}
	if req.CustomerID != nil {
		customer.ID = *req.CustomerID
	}
	if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
		// creation race: someone else registered the same email
		if existing, ferr := s.findCustomerByEmail(ctx, req.Email); ferr == nil {
			return existing, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (s *CheckoutService) createOrder(ctx context.Context, req CheckoutRequest, customer *models.Customer, offer *models.Offer, subtotal, discount, shipping, total float64, now time.Time) (*models.Order, error) {
	order := models.Order{
		CustomerID:      customer.ID,
		CustomerEmail:   customer.Email,
		Status:          models.OrderStatusConfirmed,
		PaymentStatus:   models.PaymentStatusPaid,
		PaymentMethod:   req.PaymentMethod,
		Subtotal:        subtotal,
		Discount:        discount,
		Shipping:        shipping,
		Total:           total,
		ShippingName:    req.Name,
		ShippingPhone:   req.Phone,
		ShippingAddress: req.ShippingAddress,
		ShippingCity:    req.ShippingCity,
		ShippingState:   req.ShippingState,
		ShippingPostal:  req.ShippingPostal,
		Notes:           req.Notes,
		PlacedAt:        now,
	}
	if offer != nil {
		order.OfferID = &offer.ID
	}

	order.OrderNumber = utils.GenerateOrderNumber(func(candidate string) bool {
		var count int64
		s.db.WithContext(ctx).Model(&models.Order{}).
			Where("order_number = ?", candidate).
			Count(&count)
		return count > 0
	})

	for _, item := range req.Items {
		productID := item.ProductID
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   &productID,
			ProductName: item.ProductName,
			Size:        item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.UnitPrice * float64(item.Quantity),
		})
	}

	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *CheckoutService) bumpCustomerTotals(ctx context.Context, customerID uuid.UUID, total float64) error {
	return s.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", customerID).
		Updates(map[string]interface{}{
			"total_orders": gorm.Expr("total_orders + 1"),
			"total_spent":  gorm.Expr("total_spent + ?", total),
		}).Error
}

func (s *CheckoutService) notifyAdmin(order models.Order, customer *models.Customer) {
	items := make([]OrderItemNotification, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemNotification{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    item.UnitPrice,
		})
	}

	err := s.telegram.NotifyNewOrder(OrderNotification{
		OrderNumber:   order.OrderNumber,
		Items:         items,
		TotalAmount:   order.Total,
		CustomerName:  customer.Name,
		CustomerPhone: customer.Phone,
		PaymentMethod: order.PaymentMethod,
		Status:        order.Status,
	})
	if err != nil {
		log.Printf("[Checkout] telegram notification failed for %s: %v", order.OrderNumber, err)
	}
}

// Reconciliation outbox

type coinsPayload struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Amount     int       `json:"amount"`
	OrderID    uuid.UUID `json:"order_id"`
}

type stockPayloadItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
}

type stockPayload struct {
	Items []stockPayloadItem `json:"items"`
}

type offerPayload struct {
	OfferID    uuid.UUID `json:"offer_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Email      string    `json:"email"`
	OrderID    uuid.UUID `json:"order_id"`
	Discount   float64   `json:"discount"`
}

// enqueueTask records a failed saga step for later retry. Tasks are keyed on
// (order number, step); a duplicate enqueue is a no-op.
func (s *CheckoutService) enqueueTask(ctx context.Context, orderNumber, step string, payload interface{}, cause error) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Checkout] cannot marshal %s reconciliation payload for %s: %v", step, orderNumber, err)
		return
	}

	task := models.ReconciliationTask{
		OrderNumber: orderNumber,
		Step:        step,
		Payload:     string(body),
		Status:      models.ReconStatusPending,
		LastError:   cause.Error(),
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		log.Printf("[Checkout] failed to enqueue %s reconciliation for %s: %v", step, orderNumber, err)
		return
	}

	if s.telegram != nil {
		go func() {
			if err := s.telegram.NotifyReconciliationFailure(orderNumber, step, cause.Error()); err != nil {
				log.Printf("[Checkout] reconciliation alert failed for %s: %v", orderNumber, err)
			}
		}()
	}
}

// PendingTasks lists reconciliation tasks that still need attention.
func (s *CheckoutService) PendingTasks(ctx context.Context) ([]models.ReconciliationTask, error) {
	var tasks []models.ReconciliationTask
	err := s.db.WithContext(ctx).
		Where("status <> ?", models.ReconStatusDone).
		Order("created_at asc").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// RetryTask re-runs a failed saga step. A step that fails again stays
// retryable; success marks the task done.
func (s *CheckoutService) RetryTask(ctx context.Context, taskID uuid.UUID) (*models.ReconciliationTask, error) {
	var task models.ReconciliationTask
	if err := s.db.WithContext(ctx).First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if task.Status == models.ReconStatusDone {
		return &task, nil
	}

	var stepErr error
	var rewritePayload string
	switch task.Step {
	case models.ReconStepCoins:
		var p coinsPayload
		if stepErr = json.Unmarshal([]byte(task.Payload), &p); stepErr == nil {
			_, stepErr = s.wallets.DeductCoins(ctx, p.CustomerID, p.Amount, "Payment for order "+task.OrderNumber, &p.OrderID)
		}
	case models.ReconStepStock:
		var p stockPayload
		if stepErr = json.Unmarshal([]byte(task.Payload), &p); stepErr == nil {
			// Items that decrement are dropped from the payload so the next
			// retry cannot take their stock a second time.
			var remaining []stockPayloadItem
			for _, item := range p.Items {
				if err := s.products.DecrementStock(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
					remaining = append(remaining, item)
					stepErr = err
				}
			}
			if len(remaining) > 0 && len(remaining) < len(p.Items) {
				if body, merr := json.Marshal(stockPayload{Items: remaining}); merr == nil {
					rewritePayload = string(body)
				}
			}
		}
	case models.ReconStepOffer:
		var p offerPayload
		if stepErr = json.Unmarshal([]byte(task.Payload), &p); stepErr == nil {
			stepErr = s.offers.RecordUsage(ctx, p.OfferID, p.CustomerID, p.Email, p.OrderID, p.Discount)
		}
	default:
		stepErr = fmt.Errorf("unknown reconciliation step %q", task.Step)
	}

	updates := map[string]interface{}{
		"attempts": task.Attempts + 1,
	}
	if rewritePayload != "" {
		updates["payload"] = rewritePayload
	}
	if stepErr != nil {
		updates["status"] = models.ReconStatusFailed
		updates["last_error"] = stepErr.Error()
	} else {
		updates["status"] = models.ReconStatusDone
		updates["last_error"] = ""
	}
	if err := s.db.WithContext(ctx).Model(&task).Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).First(&task, "id = ?", taskID).Error; err != nil {
		return nil, err
	}
	return &task, stepErr
}
