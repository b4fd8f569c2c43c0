package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/models"
)

// ProductService owns products and their per-size stock rows.
type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Stock").First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// DecrementStock takes qty units of a product size. The update is guarded on
// the remaining quantity, so two racing orders cannot both take the last unit.
func (s *ProductService) DecrementStock(ctx context.Context, productID uuid.UUID, size string, qty int) error {
	if qty <= 0 {
		return ErrInvalidAmount
	}

	res := s.db.WithContext(ctx).Model(&models.ProductStock{}).
		Where("product_id = ? AND size = ? AND quantity >= ?", productID, size, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.ProductStock{}).
			Where("product_id = ? AND size = ?", productID, size).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrProductNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

// AdjustStock sets or creates the stock row for a product size.
func (s *ProductService) AdjustStock(ctx context.Context, productID uuid.UUID, size string, delta int) (*models.ProductStock, error) {
	var stock models.ProductStock
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("product_id = ? AND size = ?", productID, size).First(&stock).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if delta < 0 {
				return ErrInsufficientStock
			}
			stock = models.ProductStock{ProductID: productID, Size: size, Quantity: delta}
			return tx.Create(&stock).Error
		}
		if err != nil {
			return err
		}

		next := stock.Quantity + delta
		if next < 0 {
			return ErrInsufficientStock
		}
		stock.Quantity = next
		return tx.Model(&stock).Update("quantity", next).Error
	})
	if err != nil {
		return nil, err
	}
	return &stock, nil
}
