package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
)

// OfferResult is either a new allocation or, when no bed is free, the
// waitlist entry the application now holds.
type OfferResult struct {
	Allocation    *model.Allocation    `json:"allocation,omitempty"`
	WaitlistEntry *model.WaitlistEntry `json:"waitlist_entry,omitempty"`
}

// OfferNextBed offers the first available bed in the application's
// hostel, trying the preferred room type first. A bed lost to a concurrent
// offer is skipped in favour of the next one, up to MaxOfferAttempts.
// When the hostel has no free bed the application is waitlisted instead.
func (e *Engine) OfferNextBed(ctx context.Context, scope Scope, applicationID string, deadlineDays int) (*OfferResult, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	app, err := e.store.GetApplication(ctx, scope.OrganizationID, applicationID)
	if err != nil {
		return nil, err
	}

	beds, err := e.candidateBeds(ctx, scope, app)
	if err != nil {
		return nil, err
	}
	if len(beds) == 0 {
		return e.waitlistInstead(ctx, scope, app)
	}

	var lastErr error
	for _, bed := range beds {
		alloc, err := e.CreateAllocation(ctx, scope, app.ID, bed.ID, deadlineDays)
		if err == nil {
			return &OfferResult{Allocation: alloc}, nil
		}
		if !bedTaken(err) {
			return nil, err
		}
		lastErr = err
	}
	e.logger.Warn("offer attempts exhausted",
		zap.String("application", app.ID),
		zap.Int("attempts", len(beds)),
		zap.Error(lastErr))
	return nil, apperr.Conflict("application", app.ID, "every candidate bed was taken concurrently, retry")
}

func (e *Engine) candidateBeds(ctx context.Context, scope Scope, app *model.Application) ([]store.AvailableBed, error) {
	limit := e.cfg.MaxOfferAttempts
	if limit <= 0 {
		limit = 1
	}
	filter := store.BedFilter{OrganizationID: scope.OrganizationID, HostelID: app.HostelID, Limit: limit}

	var beds []store.AvailableBed
	if app.PreferredRoomType != "" {
		preferred := filter
		preferred.RoomType = app.PreferredRoomType
		found, err := e.store.ListAvailableBeds(ctx, preferred)
		if err != nil {
			return nil, err
		}
		beds = append(beds, found...)
	}
	if len(beds) < limit {
		rest, err := e.store.ListAvailableBeds(ctx, filter)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(beds))
		for _, b := range beds {
			seen[b.ID] = struct{}{}
		}
		for _, b := range rest {
			if len(beds) == limit {
				break
			}
			if _, ok := seen[b.ID]; !ok {
				beds = append(beds, b)
			}
		}
	}
	return beds, nil
}

func (e *Engine) waitlistInstead(ctx context.Context, scope Scope, app *model.Application) (*OfferResult, error) {
	switch app.Status {
	case model.ApplicationVerified:
		change, err := e.UpdateApplicationStatus(ctx, scope, app.ID, model.ApplicationWaitlisted, "", nil)
		if err != nil {
			return nil, err
		}
		return &OfferResult{WaitlistEntry: change.WaitlistEntry}, nil
	case model.ApplicationWaitlisted, model.ApplicationAccepted:
		existing, err := e.store.FindOpenWaitlistEntry(ctx, app.ID, app.HostelID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &OfferResult{WaitlistEntry: existing}, nil
		}
		entry, err := e.Enqueue(ctx, scope, app.ID, app.HostelID, nil)
		if err != nil {
			return nil, err
		}
		return &OfferResult{WaitlistEntry: entry}, nil
	default:
		return nil, apperr.Precondition("application", app.ID, string(app.Status), "verified|waitlisted|accepted", "application is not eligible for a bed")
	}
}

// bedTaken reports whether err means the bed was claimed by someone else
// between listing and reserving, so another bed may still succeed.
func bedTaken(err error) bool {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.Kind {
	case apperr.KindConflict:
		return true
	case apperr.KindPrecondition:
		return ae.Entity == "bed"
	}
	return false
}
