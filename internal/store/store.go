package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"hostel-allocation-backend/internal/apperr"
)

// Store defines the interface for all database operations. Methods that
// change state conditionally return an apperr conflict when the expected
// prior state no longer holds.
type Store interface {
	InventoryStore
	ApplicationStore
	WaitlistStore
	AllocationStore
	HistoryStore
	ReportStore
	SubscriptionStore

	// InTx runs fn inside one database transaction. The Store passed to fn
	// is bound to the transaction and must be the only one fn uses.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// DB exposes the underlying handle for infrastructure code.
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// notFound maps gorm's missing-row error to a typed not-found error.
func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return err
}

// isUniqueViolation detects unique-index collisions on postgres and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
