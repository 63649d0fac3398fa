package store

import (
	"context"
	"fmt"

	"hostel-allocation-backend/internal/model"
)

// HistoryStore appends to and reads the bed ledger. There is no update or
// delete path.
type HistoryStore interface {
	AppendBedHistory(ctx context.Context, rec *model.BedHistoryRecord) error
	// ListBedHistory returns the ledger for a bed, newest first.
	ListBedHistory(ctx context.Context, bedID string) ([]model.BedHistoryRecord, error)
}

func (s *gormStore) AppendBedHistory(ctx context.Context, rec *model.BedHistoryRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to append bed history: %w", err)
	}
	return nil
}

func (s *gormStore) ListBedHistory(ctx context.Context, bedID string) ([]model.BedHistoryRecord, error) {
	var records []model.BedHistoryRecord
	err := s.db.WithContext(ctx).
		Where("bed_id = ?", bedID).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	return records, err
}
