package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/notification"
)

func TestSubmitApplication(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.hostel(t, "H")

	_, err := env.engine.SubmitApplication(ctx, studentScope("student-1"), ApplicationSpec{HostelID: h.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.engine.SubmitApplication(ctx, Scope{OrganizationID: "org-2", ActorID: "student-1"}, ApplicationSpec{HostelID: h.ID, AcademicYear: "2026/27"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	app, err := env.engine.SubmitApplication(ctx, studentScope("student-1"), ApplicationSpec{HostelID: h.ID, AcademicYear: "2026/27"})
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationSubmitted, app.Status)
	assert.Equal(t, "student-1", app.StudentID)
	assert.Equal(t, env.clock.Now(), app.AppliedAt)

	_, err = env.engine.SubmitApplication(ctx, studentScope("student-1"), ApplicationSpec{HostelID: h.ID, AcademicYear: "2026/27"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// A different academic year is a separate application.
	_, err = env.engine.SubmitApplication(ctx, studentScope("student-1"), ApplicationSpec{HostelID: h.ID, AcademicYear: "2027/28"})
	require.NoError(t, err)

	list, err := env.engine.ListApplications(ctx, staff, h.ID, model.ApplicationSubmitted)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUpdateApplicationStatus_StateMachine(t *testing.T) {
	testCases := []struct {
		name    string
		path    []model.ApplicationStatus
		target  model.ApplicationStatus
		allowed bool
	}{
		{name: "submitted to verified", target: model.ApplicationVerified, allowed: true},
		{name: "submitted to rejected", target: model.ApplicationRejected, allowed: true},
		{name: "submitted to accepted", target: model.ApplicationAccepted},
		{name: "submitted to waitlisted", target: model.ApplicationWaitlisted},
		{name: "verified to accepted", path: []model.ApplicationStatus{model.ApplicationVerified}, target: model.ApplicationAccepted, allowed: true},
		{name: "verified to waitlisted", path: []model.ApplicationStatus{model.ApplicationVerified}, target: model.ApplicationWaitlisted, allowed: true},
		{name: "verified to submitted", path: []model.ApplicationStatus{model.ApplicationVerified}, target: model.ApplicationSubmitted},
		{name: "waitlisted to accepted", path: []model.ApplicationStatus{model.ApplicationVerified, model.ApplicationWaitlisted}, target: model.ApplicationAccepted, allowed: true},
		{name: "waitlisted to verified", path: []model.ApplicationStatus{model.ApplicationVerified, model.ApplicationWaitlisted}, target: model.ApplicationVerified},
		{name: "accepted is terminal", path: []model.ApplicationStatus{model.ApplicationVerified, model.ApplicationAccepted}, target: model.ApplicationRejected},
		{name: "rejected is terminal", path: []model.ApplicationStatus{model.ApplicationRejected}, target: model.ApplicationVerified},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			h := env.hostel(t, "H")
			app, err := env.engine.SubmitApplication(ctx, studentScope("student-1"), ApplicationSpec{HostelID: h.ID, AcademicYear: "2026/27"})
			require.NoError(t, err)
			for _, step := range tc.path {
				_, err := env.engine.UpdateApplicationStatus(ctx, staff, app.ID, step, "", nil)
				require.NoError(t, err)
			}

			change, err := env.engine.UpdateApplicationStatus(ctx, staff, app.ID, tc.target, "checked", nil)
			if !tc.allowed {
				assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.target, change.Application.Status)
			assert.Equal(t, "checked", change.Application.Remarks)
		})
	}
}

func TestUpdateApplicationStatus_SideEffects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.hostel(t, "H")
	app, err := env.engine.SubmitApplication(ctx, studentScope("student-1"), ApplicationSpec{HostelID: h.ID, AcademicYear: "2026/27"})
	require.NoError(t, err)

	change, err := env.engine.UpdateApplicationStatus(ctx, staff, app.ID, model.ApplicationVerified, "", nil)
	require.NoError(t, err)
	require.NotNil(t, change.Application.VerifiedBy)
	assert.Equal(t, staff.ActorID, *change.Application.VerifiedBy)
	assert.Nil(t, change.Application.DecidedBy)
	assert.Nil(t, change.WaitlistEntry)

	priority := 20
	change, err = env.engine.UpdateApplicationStatus(ctx, staff, app.ID, model.ApplicationWaitlisted, "", &priority)
	require.NoError(t, err)
	require.NotNil(t, change.WaitlistEntry)
	assert.Equal(t, 20, change.WaitlistEntry.PriorityScore)
	assert.True(t, change.WaitlistEntry.Open())

	change, err = env.engine.UpdateApplicationStatus(ctx, staff, app.ID, model.ApplicationRejected, "no longer eligible", nil)
	require.NoError(t, err)
	require.NotNil(t, change.Application.DecidedAt)

	waiting, err := env.engine.GetWaitlist(ctx, staff, h.ID)
	require.NoError(t, err)
	assert.Empty(t, waiting)

	entry, err := env.store.GetWaitlistEntry(ctx, "00000000-0000-0000-0000-000000000000")
	assert.Nil(t, entry)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	stored, err := env.engine.GetApplication(ctx, staff, app.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Version)

	var statusEvents int
	for _, typ := range env.notifier.types() {
		if typ == notification.EventApplicationStatusChanged {
			statusEvents++
		}
	}
	assert.Equal(t, 3, statusEvents)
}

func TestWaitlist_NextCandidateOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.hostel(t, "H")

	var entries []*model.WaitlistEntry
	for i, score := range []int{50, 10, 10} {
		app := env.verifiedApplication(t, h.ID, []string{"s1", "s2", "s3"}[i])
		s := score
		entry, err := env.engine.Enqueue(ctx, staff, app.ID, h.ID, &s)
		require.NoError(t, err)
		entries = append(entries, entry)
		env.clock.Advance(time.Minute)
	}

	queue, err := env.engine.GetWaitlist(ctx, staff, h.ID)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, []string{entries[1].ID, entries[2].ID, entries[0].ID},
		[]string{queue[0].ID, queue[1].ID, queue[2].ID})

	for _, want := range []*model.WaitlistEntry{entries[1], entries[2], entries[0]} {
		next, err := env.engine.NextCandidate(ctx, staff, h.ID)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, want.ID, next.ID)
		_, err = env.engine.RemoveWaitlistEntry(ctx, staff, next.ID, model.RemovalWithdrawn)
		require.NoError(t, err)
	}

	next, err := env.engine.NextCandidate(ctx, staff, h.ID)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestWaitlist_SameTimestampIsFIFO(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.hostel(t, "H")

	var ids []string
	for _, student := range []string{"s1", "s2", "s3"} {
		app := env.verifiedApplication(t, h.ID, student)
		entry, err := env.engine.Enqueue(ctx, staff, app.ID, h.ID, nil)
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	queue, err := env.engine.GetWaitlist(ctx, staff, h.ID)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	for i := range ids {
		assert.Equal(t, ids[i], queue[i].ID)
	}
}

func TestWaitlist_EnqueueAndRemove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.hostel(t, "H")
	app := env.verifiedApplication(t, h.ID, "student-1")

	entry, err := env.engine.Enqueue(ctx, staff, app.ID, h.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, testAllocationConfig.DefaultPriorityScore, entry.PriorityScore)

	_, err = env.engine.Enqueue(ctx, staff, app.ID, h.ID, nil)
	require.ErrorIs(t, err, apperr.ErrConflict)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, entry.ID, ae.ID)

	removed, err := env.engine.RemoveWaitlistEntry(ctx, staff, entry.ID, "")
	require.NoError(t, err)
	require.NotNil(t, removed.RemovalReason)
	assert.Equal(t, model.RemovalWithdrawn, *removed.RemovalReason)
	firstRemoval := *removed.RemovedAt

	env.clock.Advance(time.Hour)
	again, err := env.engine.RemoveWaitlistEntry(ctx, staff, entry.ID, model.RemovalExpired)
	require.NoError(t, err)
	assert.Equal(t, model.RemovalWithdrawn, *again.RemovalReason)
	assert.True(t, firstRemoval.Equal(*again.RemovedAt))

	// After removal the application may wait again.
	_, err = env.engine.Enqueue(ctx, staff, app.ID, h.ID, nil)
	require.NoError(t, err)

	_, err = env.engine.RemoveWaitlistEntry(ctx, outside, entry.ID, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	submitted, err := env.engine.SubmitApplication(ctx, studentScope("student-2"), ApplicationSpec{HostelID: h.ID, AcademicYear: "2026/27"})
	require.NoError(t, err)
	_, err = env.engine.Enqueue(ctx, staff, submitted.ID, h.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrPrecondition)
}

func TestWaitlist_AllocationClosesOpenEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.hostel(t, "H")
	bed := env.room(t, h.ID, RoomSpec{Floor: 1, RoomNumber: "101", Capacity: 1}).Beds[0]
	app := env.verifiedApplication(t, h.ID, "student-1")

	change, err := env.engine.UpdateApplicationStatus(ctx, staff, app.ID, model.ApplicationWaitlisted, "", nil)
	require.NoError(t, err)

	_, err = env.engine.CreateAllocation(ctx, staff, app.ID, bed.ID, 0)
	require.NoError(t, err)

	entry, err := env.store.GetWaitlistEntry(ctx, change.WaitlistEntry.ID)
	require.NoError(t, err)
	assert.False(t, entry.Open())
	require.NotNil(t, entry.RemovalReason)
	assert.Equal(t, model.RemovalAllocatedBed, *entry.RemovalReason)
}

func TestWaitlist_EnqueueOnlyInAppliedHostel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h1 := env.hostel(t, "H1")
	h2 := env.hostel(t, "H2")
	env.room(t, h2.ID, RoomSpec{Floor: 1, RoomNumber: "101", Capacity: 1})
	app := env.verifiedApplication(t, h1.ID, "student-1")

	_, err := env.engine.Enqueue(ctx, staff, app.ID, h2.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	next, err := env.engine.NextCandidate(ctx, staff, h2.ID)
	require.NoError(t, err)
	assert.Nil(t, next)

	// Every entry the queue hands out can be served from its own hostel.
	h1Bed := env.room(t, h1.ID, RoomSpec{Floor: 1, RoomNumber: "101", Capacity: 1}).Beds[0]
	entry, err := env.engine.Enqueue(ctx, staff, app.ID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, h1.ID, entry.HostelID)

	next, err = env.engine.NextCandidate(ctx, staff, h1.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	_, err = env.engine.CreateAllocation(ctx, staff, next.ApplicationID, h1Bed.ID, 0)
	require.NoError(t, err)
}
