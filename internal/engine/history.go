package engine

import (
	"context"
	"time"

	"hostel-allocation-backend/internal/model"
)

// GetBedHistory returns the ledger of a bed, newest first.
func (e *Engine) GetBedHistory(ctx context.Context, scope Scope, bedID string) ([]model.BedHistoryRecord, error) {
	bed, err := e.scopedBed(ctx, scope, bedID)
	if err != nil {
		return nil, err
	}
	return e.store.ListBedHistory(ctx, bed.ID)
}

// Now returns the engine's current time in UTC.
func (e *Engine) Now() time.Time {
	return e.clock()
}
