package store

import (
	"context"
	"fmt"
	"time"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
)

// WaitlistStore persists the per-hostel waitlist queue.
type WaitlistStore interface {
	CreateWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error
	GetWaitlistEntry(ctx context.Context, id string) (*model.WaitlistEntry, error)
	FindOpenWaitlistEntry(ctx context.Context, applicationID, hostelID string) (*model.WaitlistEntry, error)
	// ListOpenWaitlist returns open entries in queue order.
	ListOpenWaitlist(ctx context.Context, hostelID string) ([]model.WaitlistEntry, error)
	// NextWaitlistEntry returns the head of the queue, or nil when empty.
	NextWaitlistEntry(ctx context.Context, hostelID string) (*model.WaitlistEntry, error)
	// CloseWaitlistEntry removes an open entry. It reports false when the
	// entry was already removed.
	CloseWaitlistEntry(ctx context.Context, id, reason string, at time.Time) (bool, error)
	// CloseOpenWaitlistEntries removes every open entry of an application.
	CloseOpenWaitlistEntries(ctx context.Context, applicationID, reason string, at time.Time) (int64, error)
}

const waitlistOrder = "priority_score ASC, added_at ASC, id ASC"

func (s *gormStore) CreateWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	err := s.db.WithContext(ctx).Create(entry).Error
	if isUniqueViolation(err) {
		return apperr.Conflict("waitlist_entry", entry.ApplicationID, "application already has an open waitlist entry")
	}
	if err != nil {
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

func (s *gormStore) GetWaitlistEntry(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	var entry model.WaitlistEntry
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, notFound(err, "waitlist_entry", id)
	}
	return &entry, nil
}

func (s *gormStore) FindOpenWaitlistEntry(ctx context.Context, applicationID, hostelID string) (*model.WaitlistEntry, error) {
	var entries []model.WaitlistEntry
	err := s.db.WithContext(ctx).
		Where("application_id = ? AND hostel_id = ? AND removed_at IS NULL", applicationID, hostelID).
		Limit(1).
		Find(&entries).Error
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func (s *gormStore) ListOpenWaitlist(ctx context.Context, hostelID string) ([]model.WaitlistEntry, error) {
	var entries []model.WaitlistEntry
	err := s.db.WithContext(ctx).
		Where("hostel_id = ? AND removed_at IS NULL", hostelID).
		Order(waitlistOrder).
		Find(&entries).Error
	return entries, err
}

func (s *gormStore) NextWaitlistEntry(ctx context.Context, hostelID string) (*model.WaitlistEntry, error) {
	var entries []model.WaitlistEntry
	err := s.db.WithContext(ctx).
		Where("hostel_id = ? AND removed_at IS NULL", hostelID).
		Order(waitlistOrder).
		Limit(1).
		Find(&entries).Error
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func (s *gormStore) CloseWaitlistEntry(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&model.WaitlistEntry{}).
		Where("id = ? AND removed_at IS NULL", id).
		Updates(map[string]interface{}{"removed_at": at, "removal_reason": reason})
	if result.Error != nil {
		return false, fmt.Errorf("failed to close waitlist entry %s: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *gormStore) CloseOpenWaitlistEntries(ctx context.Context, applicationID, reason string, at time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&model.WaitlistEntry{}).
		Where("application_id = ? AND removed_at IS NULL", applicationID).
		Updates(map[string]interface{}{"removed_at": at, "removal_reason": reason})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to close waitlist entries for %s: %w", applicationID, result.Error)
	}
	return result.RowsAffected, nil
}
