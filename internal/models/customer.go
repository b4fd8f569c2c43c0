package models

import (
	"github.com/google/uuid"
)

// Customer is the canonical registry record every subsystem keys off.
// Email is stored lowercased and is the upsert key at checkout.
type Customer struct {
	BaseModel
	Email        string  `gorm:"uniqueIndex" json:"email"`
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	PasswordHash string  `json:"-"`
	TotalOrders  int     `json:"total_orders"`
	TotalSpent   float64 `json:"total_spent"`

	Addresses     []CustomerAddress `json:"addresses,omitempty"`
	WishlistItems []WishlistItem    `json:"wishlist_items,omitempty"`
	CartItems     []CartItem        `json:"cart_items,omitempty"`
	Orders        []Order           `json:"orders,omitempty"`
}

type CustomerAddress struct {
	BaseModel
	CustomerID  uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Label       string    `json:"label"`
	AddressLine string    `json:"address_line"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	PostalCode  string    `json:"postal_code"`
	IsDefault   bool      `json:"is_default"`
}

type WishlistItem struct {
	BaseModel
	CustomerID uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	ProductID  uuid.UUID `gorm:"type:uuid" json:"product_id"`
}

// CartItem is a saved-cart row; checkout submits its own item list.
type CartItem struct {
	BaseModel
	CustomerID uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	ProductID  uuid.UUID `gorm:"type:uuid" json:"product_id"`
	Size       string    `json:"size"`
	Quantity   int       `json:"quantity"`
}
