package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Offer types.
const (
	OfferTypeProduct       = "product"
	OfferTypeCombo         = "combo"
	OfferTypePaymentMethod = "payment_method"
	OfferTypeCategory      = "category"
	OfferTypeSitewide      = "sitewide"
)

// Discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
	DiscountCoins      = "coins"
)

// Offer is a scoped, time-bounded discount rule. The window is
// [StartDate, EndDate) and UsageCount only ever increases.
type Offer struct {
	BaseModel
	Name              string         `json:"name"`
	Type              string         `json:"type"`
	DiscountType      string         `json:"discount_type"`
	DiscountValue     float64        `json:"discount_value"`
	ProductIDs        pq.StringArray `gorm:"type:text[]" json:"product_ids,omitempty"`
	PaymentMethods    pq.StringArray `gorm:"type:text[]" json:"payment_methods,omitempty"`
	Categories        pq.StringArray `gorm:"type:text[]" json:"categories,omitempty"`
	MinPurchaseAmount float64        `json:"min_purchase_amount"`
	MaxDiscountAmount float64        `json:"max_discount_amount"`
	UsageLimit        *int           `json:"usage_limit,omitempty"`
	UsageCount        int            `json:"usage_count"`
	PerCustomerLimit  *int           `json:"per_customer_limit,omitempty"`
	StartDate         time.Time      `json:"start_date"`
	EndDate           time.Time      `json:"end_date"`
	IsActive          bool           `json:"is_active"`
	Code              string         `json:"code,omitempty"`
	Priority          int            `json:"priority"`
}

// OfferUsage links a redemption to a customer and order. Append-only; deleting
// an offer does not remove its past usages.
type OfferUsage struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OfferID         uuid.UUID `gorm:"type:uuid;index" json:"offer_id"`
	CustomerID      uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Email           string    `json:"email"`
	OrderID         uuid.UUID `gorm:"type:uuid" json:"order_id"`
	DiscountApplied float64   `json:"discount_applied"`
	CreatedAt       time.Time `json:"created_at"`
}

func (u *OfferUsage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
