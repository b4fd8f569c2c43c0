package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/models"
)

// casAttempts bounds the retry loop for compare-and-swap wallet updates.
const casAttempts = 5

// WalletService owns the coin ledger. Every balance change is attributed to an
// append-only CoinTransaction row satisfying balance_after == balance_before +
// amount, and the balance can never go negative. Concurrent mutations are
// serialized with compare-and-swap updates on the stored balance.
type WalletService struct {
	db *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{db: db}
}

// CoinOptions carries optional attribution for a ledger entry.
type CoinOptions struct {
	OrderID       *uuid.UUID
	PaymentMethod string
	PaymentAmount float64
	GiftedBy      string
}

// GetBalance returns the customer's wallet, creating it with the one-time
// welcome bonus on first lookup. Subsequent calls never grant the bonus again.
func (s *WalletService) GetBalance(ctx context.Context, customerID uuid.UUID, email string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := models.Wallet{
		CustomerID:  customerID,
		Email:       email,
		Balance:     WelcomeBonusCoins,
		TotalEarned: WelcomeBonusCoins,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		bonus := models.CoinTransaction{
			CustomerID:    customerID,
			Type:          models.CoinTxGift,
			Amount:        WelcomeBonusCoins,
			BalanceBefore: 0,
			BalanceAfter:  WelcomeBonusCoins,
			Description:   "Welcome bonus",
			GiftedBy:      "system",
			CreatedAt:     time.Now(),
		}
		return tx.Create(&bonus).Error
	})
	if err != nil {
		// lost the creation race: another request made the wallet first
		var existing models.Wallet
		if ferr := s.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, err
	}

	return &created, nil
}

// AddCoins credits the wallet. txType must be purchase or gift; the wallet is
// created (with the welcome bonus) if it does not exist yet.
func (s *WalletService) AddCoins(ctx context.Context, customerID uuid.UUID, email string, amount int, txType, description string, opts CoinOptions) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if txType != models.CoinTxPurchase && txType != models.CoinTxGift {
		return nil, validationErrorf("unsupported transaction type %q", txType)
	}

	if _, err := s.GetBalance(ctx, customerID, email); err != nil {
		return nil, err
	}

	return s.mutate(ctx, customerID, func(w *models.Wallet) (*models.CoinTransaction, map[string]interface{}, error) {
		entry := &models.CoinTransaction{
			CustomerID:    customerID,
			Type:          txType,
			Amount:        amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  w.Balance + amount,
			Description:   description,
			OrderID:       opts.OrderID,
			PaymentMethod: opts.PaymentMethod,
			PaymentAmount: opts.PaymentAmount,
			GiftedBy:      opts.GiftedBy,
			CreatedAt:     time.Now(),
		}
		updates := map[string]interface{}{
			"balance":      w.Balance + amount,
			"total_earned": w.TotalEarned + amount,
		}
		return entry, updates, nil
	})
}

// DeductCoins debits the wallet, failing with ErrInsufficientBalance (and
// writing nothing) when the balance does not cover the amount.
func (s *WalletService) DeductCoins(ctx context.Context, customerID uuid.UUID, amount int, description string, orderID *uuid.UUID) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	return s.mutate(ctx, customerID, func(w *models.Wallet) (*models.CoinTransaction, map[string]interface{}, error) {
		if w.Balance < amount {
			return nil, nil, ErrInsufficientBalance
		}
		entry := &models.CoinTransaction{
			CustomerID:    customerID,
			Type:          models.CoinTxDeduction,
			Amount:        -amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  w.Balance - amount,
			Description:   description,
			OrderID:       orderID,
			CreatedAt:     time.Now(),
		}
		updates := map[string]interface{}{
			"balance":     w.Balance - amount,
			"total_spent": w.TotalSpent + amount,
		}
		return entry, updates, nil
	})
}

// RefundCoins credits coins back. TotalSpent is clamped at zero so a refund
// larger than historical spend cannot drive it negative.
func (s *WalletService) RefundCoins(ctx context.Context, customerID uuid.UUID, amount int, description string, orderID *uuid.UUID) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	return s.mutate(ctx, customerID, func(w *models.Wallet) (*models.CoinTransaction, map[string]interface{}, error) {
		entry := &models.CoinTransaction{
			CustomerID:    customerID,
			Type:          models.CoinTxRefund,
			Amount:        amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  w.Balance + amount,
			Description:   description,
			OrderID:       orderID,
			CreatedAt:     time.Now(),
		}
		spent := w.TotalSpent - amount
		if spent < 0 {
			spent = 0
		}
		updates := map[string]interface{}{
			"balance":      w.Balance + amount,
			"total_earned": w.TotalEarned + amount,
			"total_spent":  spent,
		}
		return entry, updates, nil
	})
}

// mutate applies one ledger mutation: it reads the wallet, lets build produce
// the ledger entry and column updates, then commits both with the update
// guarded on the balance it read. A guard miss means a concurrent writer won;
// the whole mutation retries with fresh state.
func (s *WalletService) mutate(ctx context.Context, customerID uuid.UUID, build func(*models.Wallet) (*models.CoinTransaction, map[string]interface{}, error)) (*models.Wallet, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		var wallet models.Wallet
		if err := s.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrWalletNotFound
			}
			return nil, err
		}

		entry, updates, err := build(&wallet)
		if err != nil {
			return nil, err
		}

		swapped := false
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Wallet{}).
				Where("customer_id = ? AND balance = ?", customerID, wallet.Balance).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil // guard miss, retry outside the transaction
			}
			swapped = true
			return tx.Create(entry).Error
		})
		if err != nil {
			return nil, err
		}
		if !swapped {
			continue
		}

		var updated models.Wallet
		if err := s.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&updated).Error; err != nil {
			return nil, err
		}
		return &updated, nil
	}

	return nil, ErrConcurrentUpdate
}

// TransactionHistory returns the customer's ledger entries newest-first,
// truncated to limit when limit > 0.
func (s *WalletService) TransactionHistory(ctx context.Context, customerID uuid.UUID, limit int) ([]models.CoinTransaction, error) {
	query := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var transactions []models.CoinTransaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// ListWallets returns every wallet sorted by balance descending, for the
// admin coins dashboard.
func (s *WalletService) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := s.db.WithContext(ctx).Order("balance desc").Find(&wallets).Error; err != nil {
		return nil, err
	}
	return wallets, nil
}
