package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
)

// Enqueue places an application on its hostel's waitlist. An application
// only waits in the hostel it applied to, since beds are offered from that
// hostel alone. An existing open entry is a conflict whose ID is the
// existing entry's ID.
func (e *Engine) Enqueue(ctx context.Context, scope Scope, applicationID, hostelID string, priority *int) (*model.WaitlistEntry, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	app, err := e.store.GetApplication(ctx, scope.OrganizationID, applicationID)
	if err != nil {
		return nil, err
	}
	if hostelID == "" {
		hostelID = app.HostelID
	}
	if hostelID != app.HostelID {
		return nil, apperr.Validation("waitlist_entry", "application "+app.ID+" applied to hostel "+app.HostelID+", not "+hostelID)
	}
	if _, err := e.store.GetHostel(ctx, scope.OrganizationID, hostelID); err != nil {
		return nil, err
	}
	switch app.Status {
	case model.ApplicationVerified, model.ApplicationWaitlisted, model.ApplicationAccepted:
	default:
		return nil, apperr.Precondition("application", app.ID, string(app.Status), "verified|waitlisted|accepted", "application cannot wait for a bed")
	}

	existing, err := e.store.FindOpenWaitlistEntry(ctx, app.ID, hostelID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("waitlist_entry", existing.ID, "application already waiting in this hostel")
	}

	now := e.clock()
	entry := &model.WaitlistEntry{
		ApplicationID: app.ID,
		HostelID:      hostelID,
		PriorityScore: e.priority(priority),
		AddedAt:       now,
	}
	if err := e.store.CreateWaitlistEntry(ctx, entry); err != nil {
		return nil, err
	}
	e.logger.Info("application enqueued",
		zap.String("application", app.ID),
		zap.String("hostel", hostelID),
		zap.String("entry", entry.ID),
		zap.Int("priority", entry.PriorityScore))
	return entry, nil
}

// openWaitlistEntry returns the application's open entry in hostelID,
// creating it when there is none. It runs inside the caller's transaction.
func (e *Engine) openWaitlistEntry(ctx context.Context, tx store.Store, app *model.Application, hostelID string, priority int, now time.Time) (*model.WaitlistEntry, error) {
	existing, err := tx.FindOpenWaitlistEntry(ctx, app.ID, hostelID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	entry := &model.WaitlistEntry{
		ApplicationID: app.ID,
		HostelID:      hostelID,
		PriorityScore: priority,
		AddedAt:       now,
	}
	if err := tx.CreateWaitlistEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// NextCandidate returns the head of a hostel's waitlist: lowest priority
// score first, then earliest added. It returns nil when nobody is waiting.
func (e *Engine) NextCandidate(ctx context.Context, scope Scope, hostelID string) (*model.WaitlistEntry, error) {
	if _, err := e.store.GetHostel(ctx, scope.OrganizationID, hostelID); err != nil {
		return nil, err
	}
	return e.store.NextWaitlistEntry(ctx, hostelID)
}

// GetWaitlist returns the open entries of a hostel in queue order.
func (e *Engine) GetWaitlist(ctx context.Context, scope Scope, hostelID string) ([]model.WaitlistEntry, error) {
	if _, err := e.store.GetHostel(ctx, scope.OrganizationID, hostelID); err != nil {
		return nil, err
	}
	return e.store.ListOpenWaitlist(ctx, hostelID)
}

// RemoveWaitlistEntry closes an entry. Removing an already removed entry
// succeeds and leaves the original removal untouched.
func (e *Engine) RemoveWaitlistEntry(ctx context.Context, scope Scope, entryID, reason string) (*model.WaitlistEntry, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	entry, err := e.store.GetWaitlistEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.GetHostel(ctx, scope.OrganizationID, entry.HostelID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.NotFound("waitlist_entry", entryID)
		}
		return nil, err
	}
	if !entry.Open() {
		return entry, nil
	}
	if reason == "" {
		reason = model.RemovalWithdrawn
	}

	now := e.clock()
	closed, err := e.store.CloseWaitlistEntry(ctx, entry.ID, reason, now)
	if err != nil {
		return nil, err
	}
	if !closed {
		return e.store.GetWaitlistEntry(ctx, entryID)
	}

	e.logger.Info("waitlist entry removed",
		zap.String("entry", entry.ID),
		zap.String("reason", reason),
		zap.String("actor", scope.ActorID))
	entry.RemovedAt = &now
	entry.RemovalReason = &reason
	return entry, nil
}
