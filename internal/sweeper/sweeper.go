// Package sweeper runs the periodic expiry sweep over pending allocations.
package sweeper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
)

const lockKey = "hostel:sweeper:lease"

// ErrLocked is returned when another instance holds the sweep lease.
var ErrLocked = apperr.Conflict("sweep", "", "another sweep holds the lease")

// Expirer performs the per-allocation transitions of a sweep.
type Expirer interface {
	Now() time.Time
	ExpireAllocation(ctx context.Context, alloc model.Allocation) (bool, error)
	RemindExpiring(ctx context.Context, alloc model.Allocation) (bool, error)
}

// Result summarizes one sweep.
type Result struct {
	Scanned  int `json:"scanned"`
	Expired  int `json:"expired"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
	Reminded int `json:"reminded"`
}

// Service orchestrates expiry sweeps on a timer.
type Service struct {
	cfg     config.SweeperConfig
	store   store.AllocationStore
	expirer Expirer
	locker  Locker
	logger  *zap.Logger

	onRelease []func()
}

// NewService creates a sweeper. A nil locker means no cross-instance lease.
func NewService(cfg config.SweeperConfig, s store.AllocationStore, expirer Expirer, locker Locker, logger *zap.Logger) *Service {
	if locker == nil {
		locker = NopLocker{}
	}
	return &Service{
		cfg:     cfg,
		store:   s,
		expirer: expirer,
		locker:  locker,
		logger:  logger.Named("sweeper"),
	}
}

// OnRelease registers fn to run after a sweep that freed at least one bed,
// e.g. to drop cached occupancy figures. Register before Run.
func (s *Service) OnRelease(fn func()) {
	s.onRelease = append(s.onRelease, fn)
}

// Run sweeps once immediately and then every configured interval until
// ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("sweeper is disabled, not starting")
		return
	}
	s.logger.Info("starting sweeper", zap.Duration("interval", s.cfg.Interval))

	s.tick(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper shutting down")
			return
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	res, err := s.SweepOnce(ctx)
	switch {
	case errors.Is(err, ErrLocked):
		s.logger.Debug("sweep skipped, lease held elsewhere")
	case err != nil:
		s.logger.Error("sweep failed", zap.Error(err))
	default:
		s.logger.Info("sweep complete",
			zap.Int("scanned", res.Scanned),
			zap.Int("expired", res.Expired),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Int("reminded", res.Reminded))
	}
}

// SweepOnce cancels every pending allocation past its deadline (up to the
// batch size) and sends expiring-soon reminders. A failing row is logged
// and counted; it never stops the rest of the batch.
func (s *Service) SweepOnce(ctx context.Context) (Result, error) {
	var res Result

	release, ok, err := s.locker.Acquire(ctx, lockKey, s.cfg.LockTTL)
	switch {
	case err != nil:
		// Row-level conditional writes keep overlapping sweeps safe.
		s.logger.Warn("sweep lease unavailable, sweeping without it", zap.Error(err))
	case !ok:
		return res, ErrLocked
	default:
		defer release()
	}

	now := s.expirer.Now()
	expired, err := s.store.ListExpiredPending(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return res, err
	}
	res.Scanned = len(expired)
	if s.cfg.BatchSize > 0 && len(expired) == s.cfg.BatchSize {
		s.logger.Info("sweep batch full, remaining rows wait for the next tick", zap.Int("batch", s.cfg.BatchSize))
	}

	for _, alloc := range expired {
		done, err := s.expirer.ExpireAllocation(ctx, alloc)
		switch {
		case err != nil:
			res.Failed++
			s.logger.Error("failed to expire allocation",
				zap.String("allocation", alloc.ID),
				zap.String("bed", alloc.BedID),
				zap.Error(err))
		case done:
			res.Expired++
		default:
			res.Skipped++
		}
	}
	if res.Expired > 0 {
		for _, fn := range s.onRelease {
			fn()
		}
	}

	if s.cfg.ReminderWindow > 0 {
		due, err := s.store.ListPendingDueBefore(ctx, now, now.Add(s.cfg.ReminderWindow), s.cfg.BatchSize)
		if err != nil {
			s.logger.Error("failed to list allocations due for reminder", zap.Error(err))
			return res, nil
		}
		for _, alloc := range due {
			sent, err := s.expirer.RemindExpiring(ctx, alloc)
			if err != nil {
				s.logger.Error("failed to send reminder", zap.String("allocation", alloc.ID), zap.Error(err))
				continue
			}
			if sent {
				res.Reminded++
			}
		}
	}
	return res, nil
}
