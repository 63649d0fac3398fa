// Package engine implements the hostel allocation workflow: inventory,
// application review, waitlist, bed offers and the bed history ledger.
//
// Every multi-row change runs inside one store transaction. Transitions
// that depend on a prior state use conditional writes, so a lost race
// surfaces as a retryable apperr conflict and leaves no partial state.
// Notifications are sent only after the transaction commits.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/notification"
	"hostel-allocation-backend/internal/store"
)

// Scope carries the caller's already-resolved identity.
type Scope struct {
	OrganizationID string
	ActorID        string
}

func (s Scope) validate() error {
	if s.OrganizationID == "" {
		return apperr.Validation("scope", "organization id is required")
	}
	if s.ActorID == "" {
		return apperr.Validation("scope", "actor id is required")
	}
	return nil
}

// Engine exposes the allocation command surface.
type Engine struct {
	store    store.Store
	notifier notification.Notifier
	logger   *zap.Logger
	cfg      config.AllocationConfig
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithNotifier sets the post-commit notification hook.
func WithNotifier(n notification.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New creates an Engine backed by s.
func New(s store.Store, cfg config.AllocationConfig, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		notifier: notification.Nop{},
		logger:   logger.Named("engine"),
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// notify hands an event to the notifier. It is called only after commit
// and never fails the operation.
func (e *Engine) notify(ctx context.Context, recipientID string, ev notification.Event) {
	if recipientID == "" {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.clock()
	}
	e.notifier.Notify(context.WithoutCancel(ctx), recipientID, ev)
}

func (e *Engine) deadlineDays(days int) int {
	if days > 0 {
		return days
	}
	return e.cfg.DefaultDeadlineDays
}

func (e *Engine) priority(p *int) int {
	if p != nil {
		return *p
	}
	return e.cfg.DefaultPriorityScore
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
