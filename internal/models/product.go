package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	Slug        string         `gorm:"uniqueIndex" json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `gorm:"index" json:"category"`
	BasePrice   float64        `json:"base_price"`
	Currency    string         `json:"currency"`
	ImageURL    string         `json:"image_url"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags,omitempty"`
	IsActive    bool           `json:"is_active"`

	Stock []ProductStock `json:"stock,omitempty"`
}

// ProductStock tracks inventory per size. Size is empty for one-size products.
type ProductStock struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;index:idx_product_size,unique" json:"product_id"`
	Size      string    `gorm:"index:idx_product_size,unique" json:"size"`
	Quantity  int       `json:"quantity"`
}
