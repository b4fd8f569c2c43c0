package models

import (
	"github.com/google/uuid"
)

// Notification types.
const (
	NotificationInfo      = "info"
	NotificationOrder     = "order"
	NotificationPromotion = "promotion"
	NotificationCoins     = "coins"
)

type Notification struct {
	BaseModel
	CustomerID uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	IsRead     bool      `json:"is_read"`
}
