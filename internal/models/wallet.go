package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coin transaction types.
const (
	CoinTxPurchase  = "purchase"
	CoinTxGift      = "gift"
	CoinTxDeduction = "deduction"
	CoinTxRefund    = "refund"
)

// Wallet holds a customer's coin balance. Balance is kept consistent with the
// transaction log: balance == sum of all transaction amounts for the customer.
type Wallet struct {
	BaseModel
	CustomerID  uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"customer_id"`
	Email       string    `json:"email"`
	Balance     int       `json:"balance"`
	TotalEarned int       `json:"total_earned"`
	TotalSpent  int       `json:"total_spent"`

	Transactions []CoinTransaction `gorm:"foreignKey:CustomerID;references:CustomerID" json:"transactions,omitempty"`
}

// CoinTransaction is an append-only ledger entry. Rows are never updated or
// deleted; corrections are recorded as new refund entries.
type CoinTransaction struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID    uuid.UUID  `gorm:"type:uuid;index" json:"customer_id"`
	Type          string     `json:"type"`
	Amount        int        `json:"amount"` // negative for deductions
	BalanceBefore int        `json:"balance_before"`
	BalanceAfter  int        `json:"balance_after"`
	Description   string     `json:"description"`
	OrderID       *uuid.UUID `gorm:"type:uuid" json:"order_id,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	PaymentAmount float64    `json:"payment_amount,omitempty"`
	GiftedBy      string     `json:"gifted_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (t *CoinTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
