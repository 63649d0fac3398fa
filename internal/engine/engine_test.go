package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/db"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/notification"
	"hostel-allocation-backend/internal/store"
)

var (
	staff   = Scope{OrganizationID: "org-1", ActorID: "staff-1"}
	outside = Scope{OrganizationID: "org-2", ActorID: "staff-9"}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
	to     []string
}

func (r *recordingNotifier) Notify(_ context.Context, recipientID string, ev notification.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to = append(r.to, recipientID)
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) types() []notification.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notification.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type testEnv struct {
	engine   *Engine
	store    store.Store
	clock    *fakeClock
	notifier *recordingNotifier
}

var testAllocationConfig = config.AllocationConfig{
	DefaultDeadlineDays:  7,
	MaxOfferAttempts:     3,
	DefaultPriorityScore: 100,
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s := store.NewGormStore(gormDB)
	clock := newFakeClock()
	rec := &recordingNotifier{}
	e := New(s, testAllocationConfig, zap.NewNop(), WithClock(clock.Now), WithNotifier(rec))
	return &testEnv{engine: e, store: s, clock: clock, notifier: rec}
}

func (env *testEnv) hostel(t *testing.T, name string) *model.Hostel {
	t.Helper()
	h, err := env.engine.CreateHostel(context.Background(), staff, HostelSpec{Name: name, Type: model.HostelTypeMixed, DeclaredCapacity: 100})
	require.NoError(t, err)
	return h
}

func (env *testEnv) room(t *testing.T, hostelID string, spec RoomSpec) *model.Room {
	t.Helper()
	r, err := env.engine.CreateRoom(context.Background(), staff, hostelID, spec)
	require.NoError(t, err)
	return r
}

// verifiedApplication submits an application for student and verifies it.
func (env *testEnv) verifiedApplication(t *testing.T, hostelID, student string) *model.Application {
	t.Helper()
	ctx := context.Background()
	app, err := env.engine.SubmitApplication(ctx, Scope{OrganizationID: staff.OrganizationID, ActorID: student}, ApplicationSpec{
		HostelID:     hostelID,
		AcademicYear: "2026/27",
	})
	require.NoError(t, err)
	change, err := env.engine.UpdateApplicationStatus(ctx, staff, app.ID, model.ApplicationVerified, "", nil)
	require.NoError(t, err)
	return change.Application
}

func (env *testEnv) bed(t *testing.T, id string) *model.Bed {
	t.Helper()
	b, err := env.store.GetBed(context.Background(), id)
	require.NoError(t, err)
	return b
}

func TestCreateHostel_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.CreateHostel(ctx, staff, HostelSpec{Name: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.engine.CreateHostel(ctx, staff, HostelSpec{Name: "H", DeclaredCapacity: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.engine.CreateHostel(ctx, staff, HostelSpec{Name: "H", Type: "co-op"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.engine.CreateHostel(ctx, Scope{ActorID: "staff-1"}, HostelSpec{Name: "H"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	h, err := env.engine.CreateHostel(ctx, staff, HostelSpec{Name: "Hall A"})
	require.NoError(t, err)
	assert.Equal(t, model.HostelTypeMixed, h.Type)
	assert.True(t, h.Active)

	list, err := env.engine.ListHostels(ctx, staff)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = env.engine.ListHostels(ctx, outside)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.hostel(t, "H")

	t.Run("non-positive capacity is rejected", func(t *testing.T) {
		_, err := env.engine.CreateRoom(ctx, staff, h.ID, RoomSpec{RoomNumber: "100", Capacity: 0})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("creates exactly capacity available beds", func(t *testing.T) {
		room := env.room(t, h.ID, RoomSpec{Floor: 1, RoomNumber: "101", Capacity: 3})
		require.Len(t, room.Beds, 3)
		assert.Equal(t, "standard", room.RoomType)
		for i, b := range room.Beds {
			assert.Equal(t, model.BedAvailable, b.Status)
			assert.Equal(t, model.BedTypeNormal, b.Type)
			assert.Equal(t, h.ID, b.HostelID)
			assert.Equal(t, []string{"101-01", "101-02", "101-03"}[i], b.Label)
		}
	})

	t.Run("room code fills block floor and number", func(t *testing.T) {
		room := env.room(t, h.ID, RoomSpec{Code: "A3#2-15", Capacity: 1, BedLabels: []string{"window"}})
		assert.Equal(t, "A3", room.Block)
		assert.Equal(t, 2, room.Floor)
		assert.Equal(t, "215", room.RoomNumber)
		assert.Equal(t, "window", room.Beds[0].Label)
	})

	t.Run("invalid code is a validation error", func(t *testing.T) {
		_, err := env.engine.CreateRoom(ctx, staff, h.ID, RoomSpec{Code: "nonsense", Capacity: 1})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("label count must match capacity", func(t *testing.T) {
		_, err := env.engine.CreateRoom(ctx, staff, h.ID, RoomSpec{RoomNumber: "102", Capacity: 2, BedLabels: []string{"a"}})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("duplicate room number conflicts and creates no beds", func(t *testing.T) {
		_, err := env.engine.CreateRoom(ctx, staff, h.ID, RoomSpec{Floor: 1, RoomNumber: "101", Capacity: 2})
		assert.ErrorIs(t, err, apperr.ErrConflict)

		beds, err := env.engine.GetAvailableBeds(ctx, staff, h.ID, "")
		require.NoError(t, err)
		assert.Len(t, beds, 4)
	})

	t.Run("foreign hostel is not found", func(t *testing.T) {
		_, err := env.engine.CreateRoom(ctx, outside, h.ID, RoomSpec{RoomNumber: "900", Capacity: 1})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestGetAvailableBeds_OrderingAndFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.hostel(t, "H")
	other := env.hostel(t, "Other")

	env.room(t, h.ID, RoomSpec{Floor: 2, RoomNumber: "201", Capacity: 1})
	env.room(t, h.ID, RoomSpec{Floor: 1, RoomNumber: "102", Capacity: 1, RoomType: "double"})
	env.room(t, h.ID, RoomSpec{Floor: 1, RoomNumber: "101", Capacity: 2, BedLabels: []string{"B", "A"}})
	env.room(t, other.ID, RoomSpec{Floor: 0, RoomNumber: "001", Capacity: 1})

	beds, err := env.engine.GetAvailableBeds(ctx, staff, h.ID, "")
	require.NoError(t, err)
	var labels []string
	for _, b := range beds {
		labels = append(labels, b.Label)
	}
	assert.Equal(t, []string{"A", "B", "102-01", "201-01"}, labels)
	assert.Equal(t, 1, beds[0].Floor)
	assert.Equal(t, "101", beds[0].RoomNumber)

	doubles, err := env.engine.GetAvailableBeds(ctx, staff, h.ID, "double")
	require.NoError(t, err)
	require.Len(t, doubles, 1)
	assert.Equal(t, "102-01", doubles[0].Label)

	all, err := env.engine.GetAvailableBeds(ctx, staff, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	foreign, err := env.engine.GetAvailableBeds(ctx, outside, "", "")
	require.NoError(t, err)
	assert.Empty(t, foreign)
}

func TestSetBedStatus_Maintenance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.hostel(t, "H")
	room := env.room(t, h.ID, RoomSpec{Floor: 1, RoomNumber: "101", Capacity: 2})
	free, held := room.Beds[0], room.Beds[1]

	bed, err := env.engine.SetBedStatus(ctx, staff, free.ID, model.BedMaintenance)
	require.NoError(t, err)
	assert.Equal(t, model.BedMaintenance, bed.Status)

	// Already in maintenance: no-op, no extra history.
	_, err = env.engine.SetBedStatus(ctx, staff, free.ID, model.BedMaintenance)
	require.NoError(t, err)

	beds, err := env.engine.GetAvailableBeds(ctx, staff, h.ID, "")
	require.NoError(t, err)
	assert.Len(t, beds, 1)

	bed, err = env.engine.SetBedStatus(ctx, staff, free.ID, model.BedAvailable)
	require.NoError(t, err)
	assert.Equal(t, model.BedAvailable, bed.Status)

	history, err := env.engine.GetBedHistory(ctx, staff, free.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "left maintenance", history[0].Notes)
	assert.Equal(t, "entered maintenance", history[1].Notes)
	for _, rec := range history {
		assert.Equal(t, model.BedActionMaintenance, rec.Action)
		assert.Equal(t, staff.ActorID, rec.PerformedBy)
	}

	app := env.verifiedApplication(t, h.ID, "student-1")
	_, err = env.engine.CreateAllocation(ctx, staff, app.ID, held.ID, 0)
	require.NoError(t, err)

	_, err = env.engine.SetBedStatus(ctx, staff, held.ID, model.BedMaintenance)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = env.engine.SetBedStatus(ctx, staff, held.ID, model.BedAvailable)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = env.engine.SetBedStatus(ctx, staff, free.ID, model.BedOccupied)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = env.engine.SetBedStatus(ctx, staff, free.ID, "broken")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.engine.SetBedStatus(ctx, outside, free.ID, model.BedMaintenance)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetAvailableBeds_RoomNumberOrderIsLexical(t *testing.T) {
	env := newTestEnv(t)
	h := env.hostel(t, "H")
	env.room(t, h.ID, RoomSpec{Floor: 1, RoomNumber: "99", Capacity: 1})
	env.room(t, h.ID, RoomSpec{Floor: 1, RoomNumber: "100", Capacity: 1})

	beds, err := env.engine.GetAvailableBeds(context.Background(), staff, h.ID, "")
	require.NoError(t, err)
	require.Len(t, beds, 2)
	assert.Equal(t, []string{"100", "99"}, []string{beds[0].RoomNumber, beds[1].RoomNumber})
}
