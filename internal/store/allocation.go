package store

import (
	"context"
	"fmt"
	"time"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
)

// AllocationStore persists bed offers and their lifecycle.
type AllocationStore interface {
	CreateAllocation(ctx context.Context, alloc *model.Allocation) error
	GetAllocation(ctx context.Context, orgID, id string) (*model.Allocation, error)
	// GetAllocationByID loads an allocation without an organization scope.
	// It is used by background jobs.
	GetAllocationByID(ctx context.Context, id string) (*model.Allocation, error)
	FindOpenAllocationForApplication(ctx context.Context, applicationID string) (*model.Allocation, error)
	ListAllocations(ctx context.Context, filter AllocationFilter) ([]model.Allocation, error)
	// ListExpiredPending returns pending allocations whose deadline is
	// strictly before now, oldest deadline first.
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Allocation, error)
	// ListPendingDueBefore returns pending allocations that have not been
	// reminded and whose deadline falls in [now, until].
	ListPendingDueBefore(ctx context.Context, now, until time.Time, limit int) ([]model.Allocation, error)
	// TransitionAllocation applies change only if the stored status equals from.
	TransitionAllocation(ctx context.Context, id string, from model.AllocationStatus, change AllocationChange) error
	// MarkReminderSent stamps reminder_sent_at once. It reports false when
	// the allocation was already reminded or is no longer pending.
	MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error)
}

func (s *gormStore) CreateAllocation(ctx context.Context, alloc *model.Allocation) error {
	err := s.db.WithContext(ctx).Create(alloc).Error
	if isUniqueViolation(err) {
		return apperr.Conflict("allocation", alloc.BedID, "bed or application already has an open allocation")
	}
	if err != nil {
		return fmt.Errorf("failed to create allocation: %w", err)
	}
	return nil
}

func (s *gormStore) GetAllocation(ctx context.Context, orgID, id string) (*model.Allocation, error) {
	var alloc model.Allocation
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&alloc).Error
	if err != nil {
		return nil, notFound(err, "allocation", id)
	}
	return &alloc, nil
}

func (s *gormStore) GetAllocationByID(ctx context.Context, id string) (*model.Allocation, error) {
	var alloc model.Allocation
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&alloc).Error; err != nil {
		return nil, notFound(err, "allocation", id)
	}
	return &alloc, nil
}

func (s *gormStore) FindOpenAllocationForApplication(ctx context.Context, applicationID string) (*model.Allocation, error) {
	var allocs []model.Allocation
	err := s.db.WithContext(ctx).
		Where("application_id = ? AND status <> ?", applicationID, string(model.AllocationCancelled)).
		Limit(1).
		Find(&allocs).Error
	if err != nil || len(allocs) == 0 {
		return nil, err
	}
	return &allocs[0], nil
}

func (s *gormStore) ListAllocations(ctx context.Context, filter AllocationFilter) ([]model.Allocation, error) {
	q := s.db.WithContext(ctx).Where("organization_id = ?", filter.OrganizationID)
	if filter.HostelID != "" {
		q = q.Where("hostel_id = ?", filter.HostelID)
	}
	if filter.StudentID != "" {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	var allocs []model.Allocation
	err := q.Order("created_at DESC, id DESC").Find(&allocs).Error
	return allocs, err
}

func (s *gormStore) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Allocation, error) {
	q := s.db.WithContext(ctx).
		Where("status = ? AND acceptance_deadline < ?", string(model.AllocationPending), now).
		Order("acceptance_deadline ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var allocs []model.Allocation
	err := q.Find(&allocs).Error
	return allocs, err
}

func (s *gormStore) ListPendingDueBefore(ctx context.Context, now, until time.Time, limit int) ([]model.Allocation, error) {
	q := s.db.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL", string(model.AllocationPending)).
		Where("acceptance_deadline >= ? AND acceptance_deadline <= ?", now, until).
		Order("acceptance_deadline ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var allocs []model.Allocation
	err := q.Find(&allocs).Error
	return allocs, err
}

func (s *gormStore) TransitionAllocation(ctx context.Context, id string, from model.AllocationStatus, change AllocationChange) error {
	updates := map[string]interface{}{
		"status":     string(change.Status),
		"updated_at": change.At,
	}
	if change.StudentResponse != "" {
		updates["student_response"] = string(change.StudentResponse)
	}
	if change.RespondedAt != nil {
		updates["responded_at"] = *change.RespondedAt
	}
	if change.CancelReason != "" {
		updates["cancel_reason"] = change.CancelReason
	}

	result := s.db.WithContext(ctx).
		Model(&model.Allocation{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update allocation %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return &apperr.Error{
			Kind:     apperr.KindConflict,
			Entity:   "allocation",
			ID:       id,
			Expected: string(from),
			Message:  "allocation status changed concurrently",
		}
	}
	return nil
}

func (s *gormStore) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Allocation{}).
		Where("id = ? AND status = ? AND reminder_sent_at IS NULL", id, string(model.AllocationPending)).
		Updates(map[string]interface{}{"reminder_sent_at": at, "updated_at": at})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark reminder for %s: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}
