package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount        = errors.New("amount must be a positive integer")
	ErrInsufficientBalance  = errors.New("insufficient coin balance")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrOfferNotFound        = errors.New("offer not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrAuthRequired         = errors.New("authentication required")
	ErrConcurrentUpdate     = errors.New("concurrent update, retries exhausted")
)

// ValidationError marks a rejected request before any write happened.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IneligibleOfferError carries the human-readable reason an offer was refused.
type IneligibleOfferError struct {
	Reason string
}

func (e *IneligibleOfferError) Error() string {
	return "offer not eligible: " + e.Reason
}
