package services

import (
	"context"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/models"
)

// NotificationService delivers in-app notifications. Broadcast reconstructs
// its audience from every store that knows customer IDs, because not all of
// them are guaranteed to have registered with the customers table.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) Create(ctx context.Context, customerID uuid.UUID, title, message, typ string) (*models.Notification, error) {
	if typ == "" {
		typ = models.NotificationInfo
	}
	n := models.Notification{
		CustomerID: customerID,
		Title:      title,
		Message:    message,
		Type:       typ,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// SendToMultiple creates one notification per recipient. Partial failure is
// tolerated: it returns how many deliveries succeeded.
func (s *NotificationService) SendToMultiple(ctx context.Context, customerIDs []uuid.UUID, title, message, typ string) (int, error) {
	success := 0
	for _, id := range customerIDs {
		if _, err := s.Create(ctx, id, title, message, typ); err != nil {
			log.Printf("[Notifications] delivery to %s failed: %v", id, err)
			continue
		}
		success++
	}
	return success, nil
}

// Broadcast sends to the union of customer IDs known to the customers,
// wallets, orders and notifications tables.
func (s *NotificationService) Broadcast(ctx context.Context, title, message, typ string) (int, int, error) {
	ids, err := s.audience(ctx)
	if err != nil {
		return 0, 0, err
	}

	success, err := s.SendToMultiple(ctx, ids, title, message, typ)
	return success, len(ids), err
}

func (s *NotificationService) audience(ctx context.Context) ([]uuid.UUID, error) {
	var raw []string
	err := s.db.WithContext(ctx).Raw(`
		SELECT id AS customer_id FROM customers
		UNION
		SELECT customer_id FROM wallets
		UNION
		SELECT customer_id FROM orders
		UNION
		SELECT customer_id FROM notifications`).
		Scan(&raw).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		id, err := uuid.Parse(v)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ListForCustomer returns a customer's notifications, newest first.
func (s *NotificationService) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Notification, error) {
	var items []models.Notification
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// MarkRead flips a notification to read for the owning customer.
func (s *NotificationService) MarkRead(ctx context.Context, id, customerID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND customer_id = ?", id, customerID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
