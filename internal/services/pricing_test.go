package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/vastra/internal/models"
)

func activeOffer(typ, discountType string, value float64) models.Offer {
	now := time.Now()
	return models.Offer{
		Type:          typ,
		DiscountType:  discountType,
		DiscountValue: value,
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
		IsActive:      true,
	}
}

func TestCheckOfferEligibility(t *testing.T) {
	now := time.Now()
	cart := []CartLine{
		{ProductID: "p1", Category: "shirts", Quantity: 1, UnitPrice: 500},
		{ProductID: "p2", Category: "jeans", Quantity: 2, UnitPrice: 250},
	}

	tests := []struct {
		name          string
		mutate        func(*models.Offer)
		subtotal      float64
		paymentMethod string
		eligible      bool
		reason        string
	}{
		{
			name:     "sitewide offer passes generic checks",
			mutate:   func(o *models.Offer) { o.Type = models.OfferTypeSitewide },
			subtotal: 1000,
			eligible: true,
		},
		{
			name:     "inactive offer rejected",
			mutate:   func(o *models.Offer) { o.IsActive = false },
			subtotal: 1000,
			eligible: false,
			reason:   "offer is not active",
		},
		{
			name:     "not yet started",
			mutate:   func(o *models.Offer) { o.StartDate = now.Add(time.Hour) },
			subtotal: 1000,
			eligible: false,
			reason:   "offer has not started yet",
		},
		{
			name:     "expired at end date",
			mutate:   func(o *models.Offer) { o.EndDate = now },
			subtotal: 1000,
			eligible: false,
			reason:   "offer has expired",
		},
		{
			name: "usage limit exhausted",
			mutate: func(o *models.Offer) {
				limit := 5
				o.UsageLimit = &limit
				o.UsageCount = 5
			},
			subtotal: 1000,
			eligible: false,
			reason:   "offer usage limit reached",
		},
		{
			name:     "below minimum purchase",
			mutate:   func(o *models.Offer) { o.MinPurchaseAmount = 1500 },
			subtotal: 1000,
			eligible: false,
		},
		{
			name: "product offer matches cart item",
			mutate: func(o *models.Offer) {
				o.Type = models.OfferTypeProduct
				o.ProductIDs = []string{"p2", "p9"}
			},
			subtotal: 1000,
			eligible: true,
		},
		{
			name: "product offer without matching item",
			mutate: func(o *models.Offer) {
				o.Type = models.OfferTypeProduct
				o.ProductIDs = []string{"p9"}
			},
			subtotal: 1000,
			eligible: false,
		},
		{
			name: "category offer matches case-insensitively",
			mutate: func(o *models.Offer) {
				o.Type = models.OfferTypeCategory
				o.Categories = []string{"Jeans"}
			},
			subtotal: 1000,
			eligible: true,
		},
		{
			name: "combo requires every product",
			mutate: func(o *models.Offer) {
				o.Type = models.OfferTypeCombo
				o.ProductIDs = []string{"p1", "p2"}
			},
			subtotal: 1000,
			eligible: true,
		},
		{
			name: "combo missing one product",
			mutate: func(o *models.Offer) {
				o.Type = models.OfferTypeCombo
				o.ProductIDs = []string{"p1", "p3"}
			},
			subtotal: 1000,
			eligible: false,
		},
		{
			name: "payment method exact match ignores case",
			mutate: func(o *models.Offer) {
				o.Type = models.OfferTypePaymentMethod
				o.PaymentMethods = []string{"UPI"}
			},
			subtotal:      1000,
			paymentMethod: "upi",
			eligible:      true,
		},
		{
			name: "card matches credit card label",
			mutate: func(o *models.Offer) {
				o.Type = models.OfferTypePaymentMethod
				o.PaymentMethods = []string{"card"}
			},
			subtotal:      1000,
			paymentMethod: "Credit Card",
			eligible:      true,
		},
		{
			name: "card matches debit card label",
			mutate: func(o *models.Offer) {
				o.Type = models.OfferTypePaymentMethod
				o.PaymentMethods = []string{"card"}
			},
			subtotal:      1000,
			paymentMethod: "debit card",
			eligible:      true,
		},
		{
			name: "payment method mismatch",
			mutate: func(o *models.Offer) {
				o.Type = models.OfferTypePaymentMethod
				o.PaymentMethods = []string{"coins"}
			},
			subtotal:      1000,
			paymentMethod: "upi",
			eligible:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer := activeOffer(models.OfferTypeSitewide, models.DiscountPercentage, 10)
			tt.mutate(&offer)

			result := CheckOfferEligibility(offer, tt.subtotal, tt.paymentMethod, cart, now)
			assert.Equal(t, tt.eligible, result.Eligible)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, result.Reason)
			}
		})
	}
}

func TestCalculateDiscount(t *testing.T) {
	t.Run("percentage capped at max discount", func(t *testing.T) {
		offer := activeOffer(models.OfferTypeSitewide, models.DiscountPercentage, 10)
		offer.MaxDiscountAmount = 50
		assert.Equal(t, 50.0, CalculateDiscount(offer, 1000))
	})

	t.Run("percentage uncapped", func(t *testing.T) {
		offer := activeOffer(models.OfferTypeSitewide, models.DiscountPercentage, 10)
		assert.Equal(t, 100.0, CalculateDiscount(offer, 1000))
	})

	t.Run("percentage rounds", func(t *testing.T) {
		offer := activeOffer(models.OfferTypeSitewide, models.DiscountPercentage, 15)
		assert.Equal(t, 150.0, CalculateDiscount(offer, 999)) // 149.85 rounds up
	})

	t.Run("fixed discount is flat", func(t *testing.T) {
		offer := activeOffer(models.OfferTypeSitewide, models.DiscountFixed, 200)
		assert.Equal(t, 200.0, CalculateDiscount(offer, 1000))
	})

	t.Run("discount never exceeds subtotal", func(t *testing.T) {
		offer := activeOffer(models.OfferTypeSitewide, models.DiscountFixed, 500)
		assert.Equal(t, 300.0, CalculateDiscount(offer, 300))
	})

	t.Run("coin discount uses the fixed rate", func(t *testing.T) {
		offer := activeOffer(models.OfferTypeSitewide, models.DiscountCoins, 75)
		assert.Equal(t, 75.0, CalculateDiscount(offer, 1000))
	})
}

func TestShippingFee(t *testing.T) {
	assert.Equal(t, 0.0, ShippingFee(999))
	assert.Equal(t, 99.0, ShippingFee(998))
	assert.Equal(t, 0.0, ShippingFee(5000))
	assert.Equal(t, 99.0, ShippingFee(1))
}

func TestCoinConversion(t *testing.T) {
	assert.Equal(t, 250.0, CoinsToCurrency(250))
	assert.Equal(t, 250, CurrencyToCoins(250))
	assert.Equal(t, 250, CurrencyToCoins(250.99)) // floors
}
