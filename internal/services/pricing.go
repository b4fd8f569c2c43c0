package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/example/vastra/internal/models"
)

// Pricing constants. The shipping threshold is shared by checkout and order
// summaries so the two can never disagree.
const (
	FreeShippingThreshold = 999.0
	FlatShippingFee       = 99.0

	// 1 coin = ₹1.
	CoinValue = 1.0

	WelcomeBonusCoins = 100
)

// CartLine is the slice of an order the eligibility engine sees.
type CartLine struct {
	ProductID string
	Category  string
	Quantity  int
	UnitPrice float64
}

// Eligibility is the outcome of evaluating an offer against a cart.
type Eligibility struct {
	Eligible bool
	Reason   string
}

func ineligible(format string, args ...interface{}) Eligibility {
	return Eligibility{Eligible: false, Reason: fmt.Sprintf(format, args...)}
}

// CheckOfferEligibility evaluates whether an offer applies to the given cart
// and payment context. Checks run in a fixed order: active flag, date window,
// global usage cap, minimum purchase, then type-specific scoping.
func CheckOfferEligibility(offer models.Offer, subtotal float64, paymentMethod string, items []CartLine, now time.Time) Eligibility {
	if !offer.IsActive {
		return ineligible("offer is not active")
	}

	if now.Before(offer.StartDate) {
		return ineligible("offer has not started yet")
	}
	if !now.Before(offer.EndDate) {
		return ineligible("offer has expired")
	}

	if offer.UsageLimit != nil && offer.UsageCount >= *offer.UsageLimit {
		return ineligible("offer usage limit reached")
	}

	if offer.MinPurchaseAmount > 0 && subtotal < offer.MinPurchaseAmount {
		return ineligible("minimum purchase of %.0f required", offer.MinPurchaseAmount)
	}

	switch offer.Type {
	case models.OfferTypePaymentMethod:
		if !matchesPaymentMethod(offer.PaymentMethods, paymentMethod) {
			return ineligible("offer requires a different payment method")
		}
	case models.OfferTypeProduct:
		if !cartContainsAny(items, offer.ProductIDs) {
			return ineligible("offer does not apply to items in your cart")
		}
	case models.OfferTypeCategory:
		if !cartContainsCategory(items, offer.Categories) {
			return ineligible("offer does not apply to these categories")
		}
	case models.OfferTypeCombo:
		if !cartContainsAll(items, offer.ProductIDs) {
			return ineligible("cart is missing items required by this combo offer")
		}
	case models.OfferTypeSitewide:
		// no extra scoping
	}

	return Eligibility{Eligible: true}
}

// matchesPaymentMethod compares case-insensitively; "card" additionally
// matches the credit/debit card labels used by the storefront.
func matchesPaymentMethod(methods []string, method string) bool {
	want := strings.ToLower(strings.TrimSpace(method))
	for _, m := range methods {
		have := strings.ToLower(strings.TrimSpace(m))
		if have == want {
			return true
		}
		if have == "card" && (want == "credit card" || want == "debit card") {
			return true
		}
		if want == "card" && (have == "credit card" || have == "debit card") {
			return true
		}
	}
	return false
}

func cartContainsAny(items []CartLine, productIDs []string) bool {
	for _, item := range items {
		for _, id := range productIDs {
			if item.ProductID == id {
				return true
			}
		}
	}
	return false
}

func cartContainsAll(items []CartLine, productIDs []string) bool {
	if len(productIDs) == 0 {
		return false
	}
	for _, id := range productIDs {
		found := false
		for _, item := range items {
			if item.ProductID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func cartContainsCategory(items []CartLine, categories []string) bool {
	for _, item := range items {
		for _, cat := range categories {
			if strings.EqualFold(item.Category, cat) {
				return true
			}
		}
	}
	return false
}

// CalculateDiscount computes the discount amount for an eligible offer.
// Percentage discounts are rounded and capped at MaxDiscountAmount; the
// result never exceeds the subtotal.
func CalculateDiscount(offer models.Offer, subtotal float64) float64 {
	var discount float64

	switch offer.DiscountType {
	case models.DiscountPercentage:
		discount = math.Round(subtotal * offer.DiscountValue / 100)
		if offer.MaxDiscountAmount > 0 && discount > offer.MaxDiscountAmount {
			discount = offer.MaxDiscountAmount
		}
	case models.DiscountFixed:
		discount = offer.DiscountValue
	case models.DiscountCoins:
		// coin-denominated discount, reserved for coin-grant flows
		discount = CoinsToCurrency(int(offer.DiscountValue))
	}

	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// ShippingFee returns the flat shipping fee, waived at the free threshold.
func ShippingFee(subtotal float64) float64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return FlatShippingFee
}

// CoinsToCurrency converts a coin amount to currency at the fixed rate.
func CoinsToCurrency(coins int) float64 {
	return float64(coins) * CoinValue
}

// CurrencyToCoins converts a currency amount to coins, flooring fractions.
func CurrencyToCoins(amount float64) int {
	return int(math.Floor(amount / CoinValue))
}
