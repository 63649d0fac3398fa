package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/notification"
	"hostel-allocation-backend/internal/store"
)

// History notes distinguishing the two "assigned" records of an offer.
const (
	notePending   = "pending"
	noteFinalized = "finalized"
)

// CreateAllocation offers bedID to an application. The bed is reserved
// with a compare-and-set on its status, so of two concurrent offers for
// the same bed exactly one succeeds and the other gets a conflict.
func (e *Engine) CreateAllocation(ctx context.Context, scope Scope, applicationID, bedID string, deadlineDays int) (*model.Allocation, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	app, err := e.store.GetApplication(ctx, scope.OrganizationID, applicationID)
	if err != nil {
		return nil, err
	}
	bed, err := e.scopedBed(ctx, scope, bedID)
	if err != nil {
		return nil, err
	}

	if bed.Status != model.BedAvailable {
		return nil, apperr.Precondition("bed", bed.ID, string(bed.Status), string(model.BedAvailable), "bed is not available")
	}
	if bed.HostelID != app.HostelID {
		return nil, apperr.Precondition("bed", bed.ID, bed.HostelID, app.HostelID, "bed is in a different hostel")
	}
	switch app.Status {
	case model.ApplicationVerified, model.ApplicationWaitlisted, model.ApplicationAccepted:
	default:
		return nil, apperr.Precondition("application", app.ID, string(app.Status), "verified|waitlisted|accepted", "application is not eligible for a bed")
	}
	open, err := e.store.FindOpenAllocationForApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, apperr.Precondition("application", app.ID, string(open.Status), "no open allocation", "application already holds allocation "+open.ID)
	}

	now := e.clock()
	alloc := &model.Allocation{
		OrganizationID:     scope.OrganizationID,
		ApplicationID:      app.ID,
		StudentID:          app.StudentID,
		BedID:              bed.ID,
		HostelID:           bed.HostelID,
		AcademicYear:       app.AcademicYear,
		Status:             model.AllocationPending,
		AcceptanceDeadline: now.AddDate(0, 0, e.deadlineDays(deadlineDays)),
		StudentResponse:    model.ResponseNone,
		CreatedBy:          scope.ActorID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	statusChanged := app.Status != model.ApplicationAccepted
	app.Status = model.ApplicationAccepted
	app.DecidedBy, app.DecidedAt = strPtr(scope.ActorID), timePtr(now)
	app.UpdatedAt = now

	err = e.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.SetBedStatus(ctx, bed.ID, []model.BedStatus{model.BedAvailable}, model.BedReserved, now); err != nil {
			return err
		}
		if err := tx.CreateAllocation(ctx, alloc); err != nil {
			return err
		}
		if err := tx.UpdateApplication(ctx, app); err != nil {
			return err
		}
		if _, err := tx.CloseOpenWaitlistEntries(ctx, app.ID, model.RemovalAllocatedBed, now); err != nil {
			return err
		}
		return tx.AppendBedHistory(ctx, &model.BedHistoryRecord{
			BedID:        bed.ID,
			StudentID:    strPtr(alloc.StudentID),
			AllocationID: strPtr(alloc.ID),
			Action:       model.BedActionAssigned,
			StartDate:    now,
			Notes:        notePending,
			PerformedBy:  scope.ActorID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		if apperr.Retryable(err) {
			e.logger.Info("allocation lost race", zap.String("bed", bed.ID), zap.String("application", app.ID), zap.Error(err))
		}
		return nil, err
	}

	e.logger.Info("allocation created",
		zap.String("allocation", alloc.ID),
		zap.String("application", app.ID),
		zap.String("bed", bed.ID),
		zap.Time("deadline", alloc.AcceptanceDeadline),
		zap.String("actor", scope.ActorID))
	if statusChanged {
		e.notifyApplication(ctx, app)
	}
	e.notify(ctx, alloc.StudentID, notification.Event{
		Type:           notification.EventAllocationOffered,
		OrganizationID: alloc.OrganizationID,
		EntityID:       alloc.ID,
		Status:         string(alloc.Status),
		Message:        "A bed has been offered to you. Please respond before the deadline.",
		Data: map[string]string{
			"bed_id":   alloc.BedID,
			"deadline": alloc.AcceptanceDeadline.Format(time.RFC3339),
		},
	})
	return alloc, nil
}

// RespondToAllocation records the student's answer to a pending offer.
// The acting user must be the offered student.
func (e *Engine) RespondToAllocation(ctx context.Context, scope Scope, allocationID string, response model.StudentResponse) (*model.Allocation, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	if response != model.ResponseAccepted && response != model.ResponseRejected {
		return nil, apperr.Validation("allocation", "response must be accepted or rejected")
	}
	alloc, err := e.store.GetAllocation(ctx, scope.OrganizationID, allocationID)
	if err != nil {
		return nil, err
	}
	if alloc.StudentID != scope.ActorID {
		return nil, apperr.Authorization("allocation", alloc.ID, "allocation belongs to another student")
	}
	if alloc.Status != model.AllocationPending {
		return nil, apperr.Precondition("allocation", alloc.ID, string(alloc.Status), string(model.AllocationPending), "allocation is not awaiting a response")
	}
	now := e.clock()
	if now.After(alloc.AcceptanceDeadline) {
		return nil, apperr.Precondition("allocation", alloc.ID, "expired", string(model.AllocationPending), "acceptance deadline has passed")
	}

	if response == model.ResponseAccepted {
		return e.finalize(ctx, scope, alloc, now)
	}
	if err := e.release(ctx, alloc, releaseSpec{
		response: model.ResponseRejected,
		reason:   model.CancelRejected,
		actor:    scope.ActorID,
		at:       now,
	}); err != nil {
		return nil, err
	}
	return alloc, nil
}

func (e *Engine) finalize(ctx context.Context, scope Scope, alloc *model.Allocation, now time.Time) (*model.Allocation, error) {
	err := e.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.TransitionAllocation(ctx, alloc.ID, model.AllocationPending, store.AllocationChange{
			Status:          model.AllocationActive,
			StudentResponse: model.ResponseAccepted,
			RespondedAt:     &now,
			At:              now,
		}); err != nil {
			return err
		}
		if err := tx.SetBedStatus(ctx, alloc.BedID, []model.BedStatus{model.BedReserved}, model.BedOccupied, now); err != nil {
			return err
		}
		return tx.AppendBedHistory(ctx, &model.BedHistoryRecord{
			BedID:        alloc.BedID,
			StudentID:    strPtr(alloc.StudentID),
			AllocationID: strPtr(alloc.ID),
			Action:       model.BedActionAssigned,
			StartDate:    now,
			Notes:        noteFinalized,
			PerformedBy:  scope.ActorID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	alloc.Status = model.AllocationActive
	alloc.StudentResponse = model.ResponseAccepted
	alloc.RespondedAt = &now
	alloc.UpdatedAt = now

	e.logger.Info("allocation accepted", zap.String("allocation", alloc.ID), zap.String("bed", alloc.BedID))
	e.notify(ctx, alloc.StudentID, notification.Event{
		Type:           notification.EventAllocationFinalized,
		OrganizationID: alloc.OrganizationID,
		EntityID:       alloc.ID,
		Status:         string(alloc.Status),
		Message:        "Your bed allocation is confirmed.",
		Data:           map[string]string{"bed_id": alloc.BedID},
	})
	return alloc, nil
}

type releaseSpec struct {
	response model.StudentResponse
	reason   string
	actor    string
	at       time.Time
}

// release cancels a pending allocation and frees its bed in one
// transaction. The conditional transition makes a second release of the
// same allocation fail with a conflict and change nothing.
func (e *Engine) release(ctx context.Context, alloc *model.Allocation, spec releaseSpec) error {
	change := store.AllocationChange{
		Status:       model.AllocationCancelled,
		CancelReason: spec.reason,
		At:           spec.at,
	}
	if spec.response != "" {
		change.StudentResponse = spec.response
		change.RespondedAt = &spec.at
	}

	err := e.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.TransitionAllocation(ctx, alloc.ID, model.AllocationPending, change); err != nil {
			return err
		}
		if err := tx.SetBedStatus(ctx, alloc.BedID, []model.BedStatus{model.BedReserved}, model.BedAvailable, spec.at); err != nil {
			return err
		}
		return tx.AppendBedHistory(ctx, &model.BedHistoryRecord{
			BedID:        alloc.BedID,
			StudentID:    strPtr(alloc.StudentID),
			AllocationID: strPtr(alloc.ID),
			Action:       model.BedActionCancelled,
			StartDate:    spec.at,
			Notes:        spec.reason,
			PerformedBy:  spec.actor,
			CreatedAt:    spec.at,
		})
	})
	if err != nil {
		return err
	}

	alloc.Status = model.AllocationCancelled
	alloc.CancelReason = spec.reason
	alloc.UpdatedAt = spec.at
	if spec.response != "" {
		alloc.StudentResponse = spec.response
		alloc.RespondedAt = &spec.at
	}

	e.logger.Info("allocation cancelled",
		zap.String("allocation", alloc.ID),
		zap.String("bed", alloc.BedID),
		zap.String("reason", spec.reason),
		zap.String("actor", spec.actor))
	e.notify(ctx, alloc.StudentID, notification.Event{
		Type:           notification.EventAllocationCancelled,
		OrganizationID: alloc.OrganizationID,
		EntityID:       alloc.ID,
		Status:         string(alloc.Status),
		Message:        "Your bed offer was cancelled (" + spec.reason + ").",
		Data:           map[string]string{"bed_id": alloc.BedID, "reason": spec.reason},
	})
	return nil
}

// ExpireAllocation cancels an offer whose deadline passed, on behalf of
// the system. It reports false when the allocation was already resolved
// by a response or an earlier sweep.
func (e *Engine) ExpireAllocation(ctx context.Context, alloc model.Allocation) (bool, error) {
	now := e.clock()
	if alloc.Status != model.AllocationPending || !alloc.AcceptanceDeadline.Before(now) {
		return false, nil
	}
	err := e.release(ctx, &alloc, releaseSpec{
		reason: model.CancelExpired,
		actor:  model.SystemActor,
		at:     now,
	})
	if err != nil {
		var lost bool
		if apperr.KindOf(err) == apperr.KindConflict {
			cur, getErr := e.store.GetAllocationByID(ctx, alloc.ID)
			lost = getErr == nil && cur.Status != model.AllocationPending
		}
		if lost {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RemindExpiring sends the expiring-soon notice once per allocation. It
// reports whether a reminder was sent.
func (e *Engine) RemindExpiring(ctx context.Context, alloc model.Allocation) (bool, error) {
	marked, err := e.store.MarkReminderSent(ctx, alloc.ID, e.clock())
	if err != nil || !marked {
		return false, err
	}
	e.notify(ctx, alloc.StudentID, notification.Event{
		Type:           notification.EventAllocationExpiring,
		OrganizationID: alloc.OrganizationID,
		EntityID:       alloc.ID,
		Status:         string(alloc.Status),
		Message:        "Your bed offer expires soon.",
		Data: map[string]string{
			"bed_id":   alloc.BedID,
			"deadline": alloc.AcceptanceDeadline.Format(time.RFC3339),
		},
	})
	return true, nil
}

// GetAllocation returns an allocation of the caller's organization.
func (e *Engine) GetAllocation(ctx context.Context, scope Scope, id string) (*model.Allocation, error) {
	return e.store.GetAllocation(ctx, scope.OrganizationID, id)
}

// ListAllocations returns allocations, newest first.
func (e *Engine) ListAllocations(ctx context.Context, scope Scope, filter store.AllocationFilter) ([]model.Allocation, error) {
	if scope.OrganizationID == "" {
		return nil, apperr.Validation("scope", "organization id is required")
	}
	filter.OrganizationID = scope.OrganizationID
	return e.store.ListAllocations(ctx, filter)
}
