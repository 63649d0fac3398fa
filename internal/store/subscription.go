package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
)

// SubscriptionStore manages web push subscriptions.
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	DeleteRecipientSubscription(ctx context.Context, recipientID, endpoint string) (bool, error)
	ListSubscriptionsByRecipient(ctx context.Context, recipientID string) ([]model.PushSubscription, error)
}

// UpsertSubscription creates sub or refreshes its keys. An endpoint
// registered to another recipient is left untouched and reported as an
// authorization error.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "push_subscriptions.recipient_id = excluded.recipient_id"},
		}},
	}).Create(sub)
	if res.Error != nil {
		return fmt.Errorf("failed to upsert subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Authorization("subscription", sub.Endpoint, "endpoint is registered to another recipient")
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).First(&sub).Error; err != nil {
		return nil, notFound(err, "subscription", endpoint)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error
}

// DeleteRecipientSubscription removes endpoint only if recipientID owns it.
func (s *gormStore) DeleteRecipientSubscription(ctx context.Context, recipientID, endpoint string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("endpoint = ? AND recipient_id = ?", endpoint, recipientID).
		Delete(&model.PushSubscription{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete subscription: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) ListSubscriptionsByRecipient(ctx context.Context, recipientID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at ASC").
		Find(&subs).Error
	return subs, err
}
