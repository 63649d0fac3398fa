package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_SetBedStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name             string
		rowsAffected     int64
		mockErr          error
		expectedConflict bool
		expectedErr      bool
	}{
		{name: "Bed still available, should update", rowsAffected: 1},
		{name: "Bed taken concurrently, should report conflict", rowsAffected: 0, expectedConflict: true, expectedErr: true},
		{name: "Database failure, should wrap error", mockErr: errors.New("connection reset"), expectedErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			store := NewGormStore(gormDB)

			exp := mock.ExpectExec(regexp.QuoteMeta(`UPDATE "beds" SET`)).
				WithArgs("reserved", Any{}, "b1", "available")
			if tc.mockErr != nil {
				exp.WillReturnError(tc.mockErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))
			}

			err := store.SetBedStatus(context.Background(), "b1",
				[]model.BedStatus{model.BedAvailable}, model.BedReserved, now)

			if tc.expectedErr {
				require.Error(t, err)
				assert.Equal(t, tc.expectedConflict, errors.Is(err, apperr.ErrConflict))
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_InTxRollsBackOnConflict(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "beds" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx Store) error {
		if err := tx.SetBedStatus(context.Background(), "b1",
			[]model.BedStatus{model.BedAvailable}, model.BedReserved, now); err != nil {
			return err
		}
		// Not reached: the insert must never run after a lost race.
		return tx.CreateAllocation(context.Background(), &model.Allocation{BedID: "b1"})
	})

	require.Error(t, err)
	assert.True(t, apperr.Retryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_TransitionAllocation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Pending allocation accepted", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		store := NewGormStore(gormDB)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "allocations" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.TransitionAllocation(context.Background(), "a1", model.AllocationPending, AllocationChange{
			Status:          model.AllocationActive,
			StudentResponse: model.ResponseAccepted,
			RespondedAt:     &now,
			At:              now,
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already cancelled, should report conflict", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		store := NewGormStore(gormDB)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "allocations" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.TransitionAllocation(context.Background(), "a1", model.AllocationPending, AllocationChange{
			Status:       model.AllocationCancelled,
			CancelReason: model.CancelExpired,
			At:           now,
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStore_UpdateApplicationVersionMismatch(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "applications" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	app := &model.Application{ID: "app1", Status: model.ApplicationVerified, Version: 3, UpdatedAt: time.Now().UTC()}
	err := store.UpdateApplication(context.Background(), app)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, 3, app.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetBedNotFound(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "beds"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetBed(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
