package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/models"
)

// OfferService owns promotional offers and their usage records. UsageCount
// only ever increases and never passes UsageLimit; usage rows are append-only
// and survive offer deletion.
type OfferService struct {
	db *gorm.DB
}

func NewOfferService(db *gorm.DB) *OfferService {
	return &OfferService{db: db}
}

func (s *OfferService) Create(ctx context.Context, offer *models.Offer) error {
	if offer.EndDate.Before(offer.StartDate) {
		return validationErrorf("end date must be after start date")
	}
	return s.db.WithContext(ctx).Create(offer).Error
}

func (s *OfferService) Get(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := s.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	return &offer, nil
}

func (s *OfferService) List(ctx context.Context) ([]models.Offer, error) {
	var offers []models.Offer
	if err := s.db.WithContext(ctx).Order("priority desc, created_at desc").Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// ActiveOffers returns offers that are active, inside their [start, end)
// window and under their global usage cap.
func (s *OfferService) ActiveOffers(ctx context.Context, now time.Time) ([]models.Offer, error) {
	var offers []models.Offer
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("start_date <= ? AND end_date > ?", now, now).
		Where("usage_limit IS NULL OR usage_count < usage_limit").
		Order("priority desc").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

// Update replaces the mutable fields of an offer. UsageCount is not updatable
// from outside; it only moves through RecordUsage.
func (s *OfferService) Update(ctx context.Context, id uuid.UUID, updated *models.Offer) (*models.Offer, error) {
	offer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated.ID = offer.ID
	updated.CreatedAt = offer.CreatedAt
	updated.UsageCount = offer.UsageCount
	if err := s.db.WithContext(ctx).Save(updated).Error; err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *OfferService) Toggle(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	offer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	offer.IsActive = !offer.IsActive
	if err := s.db.WithContext(ctx).Model(offer).Update("is_active", offer.IsActive).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

// Delete removes the offer definition. Past OfferUsage rows are kept.
func (s *OfferService) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Offer{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOfferNotFound
	}
	return nil
}

// FindByCode matches a coupon code case-insensitively.
func (s *OfferService) FindByCode(ctx context.Context, code string) (*models.Offer, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrOfferNotFound
	}

	var offer models.Offer
	err := s.db.WithContext(ctx).
		Where("LOWER(code) = ?", strings.ToLower(code)).
		First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	return &offer, nil
}

// CanCustomerUseOffer composes the redemption checks: existence, active flag,
// date window, global usage cap, then the per-customer cap counted from prior
// usage rows.
func (s *OfferService) CanCustomerUseOffer(ctx context.Context, offerID, customerID uuid.UUID, now time.Time) error {
	offer, err := s.Get(ctx, offerID)
	if err != nil {
		return err
	}

	if !offer.IsActive {
		return &IneligibleOfferError{Reason: "offer is not active"}
	}
	if now.Before(offer.StartDate) || !now.Before(offer.EndDate) {
		return &IneligibleOfferError{Reason: "offer is outside its validity window"}
	}
	if offer.UsageLimit != nil && offer.UsageCount >= *offer.UsageLimit {
		return &IneligibleOfferError{Reason: "offer usage limit reached"}
	}

	if offer.PerCustomerLimit != nil {
		var used int64
		err := s.db.WithContext(ctx).Model(&models.OfferUsage{}).
			Where("offer_id = ? AND customer_id = ?", offerID, customerID).
			Count(&used).Error
		if err != nil {
			return err
		}
		if used >= int64(*offer.PerCustomerLimit) {
			return &IneligibleOfferError{Reason: "you have already used this offer"}
		}
	}

	return nil
}

// RecordUsage increments the offer's usage count and appends the usage row in
// one transaction. The increment is guarded on the count that was read, so two
// racing redemptions cannot both take the last slot under the usage limit.
func (s *OfferService) RecordUsage(ctx context.Context, offerID, customerID uuid.UUID, email string, orderID uuid.UUID, discountApplied float64) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		offer, err := s.Get(ctx, offerID)
		if err != nil {
			return err
		}
		if offer.UsageLimit != nil && offer.UsageCount >= *offer.UsageLimit {
			return &IneligibleOfferError{Reason: "offer usage limit reached"}
		}

		swapped := false
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Offer{}).
				Where("id = ? AND usage_count = ?", offerID, offer.UsageCount).
				Update("usage_count", offer.UsageCount+1)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil // guard miss, retry
			}
			swapped = true

			usage := models.OfferUsage{
				OfferID:         offerID,
				CustomerID:      customerID,
				Email:           strings.ToLower(email),
				OrderID:         orderID,
				DiscountApplied: discountApplied,
				CreatedAt:       time.Now(),
			}
			return tx.Create(&usage).Error
		})
		if err != nil {
			return err
		}
		if swapped {
			return nil
		}
	}

	return ErrConcurrentUpdate
}

// UsagesForOffer returns the redemption history of an offer, newest first.
func (s *OfferService) UsagesForOffer(ctx context.Context, offerID uuid.UUID) ([]models.OfferUsage, error) {
	var usages []models.OfferUsage
	err := s.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("created_at desc").
		Find(&usages).Error
	if err != nil {
		return nil, err
	}
	return usages, nil
}
