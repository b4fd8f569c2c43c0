package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment statuses.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

type Order struct {
	BaseModel
	OrderNumber   string    `gorm:"uniqueIndex" json:"order_number"`
	CustomerID    uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Customer      *Customer `json:"customer,omitempty"`
	CustomerEmail string    `json:"customer_email"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	PaymentMethod string    `json:"payment_method"`
	Subtotal      float64   `json:"subtotal"`
	Discount      float64   `json:"discount"`
	Shipping      float64   `json:"shipping"`
	Total         float64   `json:"total"`

	ShippingName    string `json:"shipping_name"`
	ShippingPhone   string `json:"shipping_phone"`
	ShippingAddress string `json:"shipping_address"`
	ShippingCity    string `json:"shipping_city"`
	ShippingState   string `json:"shipping_state"`
	ShippingPostal  string `json:"shipping_postal"`

	OfferID  *uuid.UUID  `gorm:"type:uuid" json:"offer_id,omitempty"`
	Notes    string      `json:"notes"`
	PlacedAt time.Time   `json:"placed_at"`
	Items    []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	ProductID   *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	ProductName string     `json:"product_name"`
	Size        string     `json:"size"`
	Quantity    int        `json:"quantity"`
	UnitPrice   float64    `json:"unit_price"`
	LineTotal   float64    `json:"line_total"`
}
