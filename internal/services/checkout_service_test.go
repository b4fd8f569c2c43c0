package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/models"
)

func newCheckout(db *gorm.DB) *CheckoutService {
	return NewCheckoutService(
		db,
		NewWalletService(db),
		NewOfferService(db),
		NewProductService(db),
		NewNotificationService(db),
		nil, // no telegram in tests
	)
}

func checkoutRequest(customerID *uuid.UUID, items ...CheckoutItem) CheckoutRequest {
	return CheckoutRequest{
		CustomerID:      customerID,
		Email:           "Buyer@Example.com",
		Name:            "Asha Rao",
		Phone:           "+91 98765 43210",
		ShippingAddress: "14 MG Road",
		ShippingCity:    "Bengaluru",
		ShippingState:   "KA",
		ShippingPostal:  "560001",
		PaymentMethod:   "upi",
		Items:           items,
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)
	ctx := context.Background()

	var verr *ValidationError

	t.Run("empty cart", func(t *testing.T) {
		req := checkoutRequest(nil)
		_, err := svc.PlaceOrder(ctx, req)
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("zero quantity", func(t *testing.T) {
		req := checkoutRequest(nil, CheckoutItem{ProductID: uuid.New(), ProductName: "Shirt", Quantity: 0, UnitPrice: 500})
		_, err := svc.PlaceOrder(ctx, req)
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("missing shipping fields", func(t *testing.T) {
		req := checkoutRequest(nil, CheckoutItem{ProductID: uuid.New(), ProductName: "Shirt", Quantity: 1, UnitPrice: 500})
		req.ShippingCity = ""
		_, err := svc.PlaceOrder(ctx, req)
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("missing email", func(t *testing.T) {
		req := checkoutRequest(nil, CheckoutItem{ProductID: uuid.New(), ProductName: "Shirt", Quantity: 1, UnitPrice: 500})
		req.Email = "  "
		_, err := svc.PlaceOrder(ctx, req)
		assert.ErrorAs(t, err, &verr)
	})

	// nothing above may have written anything
	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestPlaceOrderGuestCheckout(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)
	ctx := context.Background()
	product := seedProduct(t, db, "kurta", 1200, map[string]int{"M": 10})

	req := checkoutRequest(nil, CheckoutItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Category:    product.Category,
		Size:        "M",
		Quantity:    1,
		UnitPrice:   1200,
	})

	result, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	order := result.Order
	assert.Regexp(t, `^ORD-\d{6}-\d{3}$`, order.OrderNumber)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, 1200.0, order.Subtotal)
	assert.Equal(t, 0.0, order.Shipping) // above the free shipping threshold
	assert.Equal(t, 1200.0, order.Total)
	assert.Equal(t, "buyer@example.com", order.CustomerEmail)

	// the guest became a customer record keyed on lowercased email
	var customer models.Customer
	require.NoError(t, db.Where("email = ?", "buyer@example.com").First(&customer).Error)
	assert.Equal(t, 1, customer.TotalOrders)
	assert.Equal(t, 1200.0, customer.TotalSpent)

	// stock was taken
	var stock models.ProductStock
	require.NoError(t, db.Where("product_id = ? AND size = ?", product.ID, "M").First(&stock).Error)
	assert.Equal(t, 9, stock.Quantity)

	// order confirmation notification was delivered
	items, err := NewNotificationService(db).ListForCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.NotificationOrder, items[0].Type)

	t.Run("second order reuses the customer", func(t *testing.T) {
		_, err := svc.PlaceOrder(ctx, req)
		require.NoError(t, err)

		var customers int64
		require.NoError(t, db.Model(&models.Customer{}).Where("email = ?", "buyer@example.com").Count(&customers).Error)
		assert.EqualValues(t, 1, customers)

		var again models.Customer
		require.NoError(t, db.Where("email = ?", "buyer@example.com").First(&again).Error)
		assert.Equal(t, 2, again.TotalOrders)
		assert.Equal(t, 2400.0, again.TotalSpent)
	})
}

func TestPlaceOrderShippingFeeBelowThreshold(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)
	product := seedProduct(t, db, "socks", 499, map[string]int{"": 10})

	req := checkoutRequest(nil, CheckoutItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Category:    product.Category,
		Quantity:    2,
		UnitPrice:   499,
	})

	result, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 998.0, result.Order.Subtotal)
	assert.Equal(t, FlatShippingFee, result.Order.Shipping)
	assert.Equal(t, 998.0+FlatShippingFee, result.Order.Total)
}

func TestPlaceOrderWithCoins(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)
	ctx := context.Background()
	wallets := NewWalletService(db)
	product := seedProduct(t, db, "sherwani", 1000, map[string]int{"L": 5})

	customerID := uuid.New()
	_, err := wallets.AddCoins(ctx, customerID, "buyer@example.com", 900, models.CoinTxPurchase, "Coins purchase", CoinOptions{})
	require.NoError(t, err) // 900 + 100 welcome = 1000

	req := checkoutRequest(&customerID, CheckoutItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Category:    product.Category,
		Size:        "L",
		Quantity:    1,
		UnitPrice:   1000,
	})
	req.PaymentMethod = PaymentCoins

	result, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 1000.0, result.Order.Total)

	wallet, err := wallets.GetBalance(ctx, customerID, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, wallet.Balance)

	history, err := wallets.TransactionHistory(ctx, customerID, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.CoinTxDeduction, history[0].Type)
	assert.Equal(t, -1000, history[0].Amount)
	require.NotNil(t, history[0].OrderID)
	assert.Equal(t, result.Order.ID, *history[0].OrderID)
}

func TestPlaceOrderCoinsInsufficientBalance(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)
	ctx := context.Background()
	wallets := NewWalletService(db)
	product := seedProduct(t, db, "stole", 150, map[string]int{"": 5})

	customerID := uuid.New()
	_, err := wallets.GetBalance(ctx, customerID, "broke@example.com")
	require.NoError(t, err) // 100 coin welcome bonus only

	req := checkoutRequest(&customerID, CheckoutItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    1,
		UnitPrice:   150,
	})
	req.Email = "broke@example.com"
	req.PaymentMethod = PaymentCoins

	_, err = svc.PlaceOrder(ctx, req)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// the refusal happened before any write
	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	var customers int64
	require.NoError(t, db.Model(&models.Customer{}).Count(&customers).Error)
	assert.Zero(t, customers)

	wallet, err := wallets.GetBalance(ctx, customerID, "broke@example.com")
	require.NoError(t, err)
	assert.Equal(t, WelcomeBonusCoins, wallet.Balance)

	var stock models.ProductStock
	require.NoError(t, db.Where("product_id = ?", product.ID).First(&stock).Error)
	assert.Equal(t, 5, stock.Quantity)
}

func TestPlaceOrderCoinsRequiresAuth(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)
	product := seedProduct(t, db, "belt", 300, map[string]int{"": 5})

	req := checkoutRequest(nil, CheckoutItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    1,
		UnitPrice:   300,
	})
	req.PaymentMethod = PaymentCoins

	_, err := svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestPlaceOrderAppliesOffer(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)
	ctx := context.Background()
	product := seedProduct(t, db, "blazer", 2000, map[string]int{"M": 5})

	offer := seedOffer(t, db, func(o *models.Offer) {
		o.Code = "FLAT10"
		o.MaxDiscountAmount = 150
	})

	req := checkoutRequest(nil, CheckoutItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Category:    product.Category,
		Size:        "M",
		Quantity:    1,
		UnitPrice:   2000,
	})
	req.CouponCode = "flat10"

	result, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	order := result.Order
	assert.Equal(t, 150.0, order.Discount) // 10% of 2000 capped at 150
	assert.Equal(t, 1850.0, order.Total)
	require.NotNil(t, order.OfferID)
	assert.Equal(t, offer.ID, *order.OfferID)

	refreshed, err := NewOfferService(db).Get(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.UsageCount)

	usages, err := NewOfferService(db).UsagesForOffer(ctx, offer.ID)
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, order.ID, usages[0].OrderID)
	assert.Equal(t, 150.0, usages[0].DiscountApplied)
}

func TestPlaceOrderIneligibleOfferRejected(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)
	product := seedProduct(t, db, "cap", 2000, map[string]int{"": 5})

	seedOffer(t, db, func(o *models.Offer) {
		o.Code = "BIGSPEND"
		o.MinPurchaseAmount = 5000
	})

	req := checkoutRequest(nil, CheckoutItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    1,
		UnitPrice:   2000,
	})
	req.CouponCode = "BIGSPEND"

	_, err := svc.PlaceOrder(context.Background(), req)
	var ierr *IneligibleOfferError
	require.ErrorAs(t, err, &ierr)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestPlaceOrderPerCustomerCapAtCheckout(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)
	ctx := context.Background()
	product := seedProduct(t, db, "tunic", 2000, map[string]int{"S": 10})

	seedOffer(t, db, func(o *models.Offer) {
		o.Code = "ONCE"
		perCustomer := 1
		o.PerCustomerLimit = &perCustomer
	})

	req := checkoutRequest(nil, CheckoutItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Category:    product.Category,
		Size:        "S",
		Quantity:    1,
		UnitPrice:   2000,
	})
	req.CouponCode = "ONCE"

	_, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, req)
	var ierr *IneligibleOfferError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "you have already used this offer", ierr.Reason)
}

func TestPlaceOrderStockFailureIsNonFatal(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)
	ctx := context.Background()
	product := seedProduct(t, db, "gown", 1500, map[string]int{"M": 1})

	req := checkoutRequest(nil, CheckoutItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Category:    product.Category,
		Size:        "M",
		Quantity:    3, // more than in stock
		UnitPrice:   1500,
	})

	result, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err, "the order itself must still go through")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "stock update failed")

	// the failure landed in the reconciliation outbox
	tasks, err := svc.PendingTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.ReconStepStock, tasks[0].Step)
	assert.Equal(t, models.ReconStatusPending, tasks[0].Status)
	assert.Equal(t, result.Order.OrderNumber, tasks[0].OrderNumber)

	t.Run("retry fails while stock is still short", func(t *testing.T) {
		task, rerr := svc.RetryTask(ctx, tasks[0].ID)
		require.Error(t, rerr)
		assert.Equal(t, models.ReconStatusFailed, task.Status)
		assert.Equal(t, 1, task.Attempts)
		assert.NotEmpty(t, task.LastError)
	})

	t.Run("retry succeeds after restock", func(t *testing.T) {
		_, err := NewProductService(db).AdjustStock(ctx, product.ID, "M", 10)
		require.NoError(t, err)

		task, rerr := svc.RetryTask(ctx, tasks[0].ID)
		require.NoError(t, rerr)
		assert.Equal(t, models.ReconStatusDone, task.Status)
		assert.Equal(t, 2, task.Attempts)
		assert.Empty(t, task.LastError)

		// done tasks drop out of the pending list and are idempotent to retry
		pending, err := svc.PendingTasks(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)

		again, rerr := svc.RetryTask(ctx, task.ID)
		require.NoError(t, rerr)
		assert.Equal(t, 2, again.Attempts)
	})
}

// Both failed items of one order must land in the same outbox task: the table
// is unique on (order number, step), so separate enqueues would lose all but
// the first.
func TestPlaceOrderCollectsAllFailedStockItems(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)
	ctx := context.Background()
	products := NewProductService(db)

	shirt := seedProduct(t, db, "shirt", 800, map[string]int{"M": 0})
	jeans := seedProduct(t, db, "jeans", 900, map[string]int{"32": 0})

	req := checkoutRequest(nil,
		CheckoutItem{ProductID: shirt.ID, ProductName: shirt.Name, Size: "M", Quantity: 1, UnitPrice: 800},
		CheckoutItem{ProductID: jeans.ID, ProductName: jeans.Name, Size: "32", Quantity: 1, UnitPrice: 900},
	)

	result, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 2)

	tasks, err := svc.PendingTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	var payload struct {
		Items []struct {
			ProductID uuid.UUID `json:"product_id"`
			Size      string    `json:"size"`
			Quantity  int       `json:"quantity"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(tasks[0].Payload), &payload))
	require.Len(t, payload.Items, 2)
	assert.Equal(t, shirt.ID, payload.Items[0].ProductID)
	assert.Equal(t, jeans.ID, payload.Items[1].ProductID)

	t.Run("partial retry keeps only the unfixed item", func(t *testing.T) {
		_, err := products.AdjustStock(ctx, shirt.ID, "M", 5)
		require.NoError(t, err)

		task, rerr := svc.RetryTask(ctx, tasks[0].ID)
		require.Error(t, rerr)
		assert.Equal(t, models.ReconStatusFailed, task.Status)

		require.NoError(t, json.Unmarshal([]byte(task.Payload), &payload))
		require.Len(t, payload.Items, 1)
		assert.Equal(t, jeans.ID, payload.Items[0].ProductID)

		// the shirt decrement must not be repeated by the next retry
		_, err = products.AdjustStock(ctx, jeans.ID, "32", 5)
		require.NoError(t, err)
		task, rerr = svc.RetryTask(ctx, task.ID)
		require.NoError(t, rerr)
		assert.Equal(t, models.ReconStatusDone, task.Status)

		shirtStock, err := products.Get(ctx, shirt.ID)
		require.NoError(t, err)
		require.Len(t, shirtStock.Stock, 1)
		assert.Equal(t, 4, shirtStock.Stock[0].Quantity) // 0 + 5 restock - 1 order
	})
}

func TestRetryUnknownTask(t *testing.T) {
	db := openTestDB(t)
	svc := newCheckout(db)

	_, err := svc.RetryTask(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
