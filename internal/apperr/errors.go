// Package apperr defines the error kinds returned by the allocation engine.
// Every error carries the entity it concerns and, for state errors, the
// current and expected states so callers can decide whether to retry.
// Only conflicts are retryable.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an engine error.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInvalidTransition Kind = "invalid_transition"
	KindPrecondition      Kind = "precondition_failed"
	KindConflict          Kind = "conflict"
	KindAuthorization     Kind = "authorization"
	KindNotFound          Kind = "not_found"
)

// Sentinels for errors.Is matching against any *Error of the same kind.
var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrPrecondition      = errors.New("precondition failed")
	ErrConflict          = errors.New("conflict")
	ErrAuthorization     = errors.New("not authorized")
	ErrNotFound          = errors.New("not found")
)

var sentinels = map[Kind]error{
	KindValidation:        ErrValidation,
	KindInvalidTransition: ErrInvalidTransition,
	KindPrecondition:      ErrPrecondition,
	KindConflict:          ErrConflict,
	KindAuthorization:     ErrAuthorization,
	KindNotFound:          ErrNotFound,
}

// Error is the concrete error type returned by the engine and store.
type Error struct {
	Kind     Kind
	Entity   string
	ID       string
	Current  string
	Expected string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
		if e.ID != "" {
			fmt.Fprintf(&b, " %s", e.ID)
		}
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Current != "" || e.Expected != "" {
		fmt.Fprintf(&b, " (current=%s expected=%s)", e.Current, e.Expected)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the same kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Validation reports malformed input.
func Validation(entity, msg string) *Error {
	return &Error{Kind: KindValidation, Entity: entity, Message: msg}
}

// InvalidTransition reports a state machine rule violation.
func InvalidTransition(entity, id, current, expected string) *Error {
	return &Error{Kind: KindInvalidTransition, Entity: entity, ID: id, Current: current, Expected: expected}
}

// Precondition reports that the required prior state does not hold.
func Precondition(entity, id, current, expected, msg string) *Error {
	return &Error{Kind: KindPrecondition, Entity: entity, ID: id, Current: current, Expected: expected, Message: msg}
}

// Conflict reports a concurrent-write collision or uniqueness clash.
func Conflict(entity, id, msg string) *Error {
	return &Error{Kind: KindConflict, Entity: entity, ID: id, Message: msg}
}

// Authorization reports an actor acting on a resource it does not own.
func Authorization(entity, id, msg string) *Error {
	return &Error{Kind: KindAuthorization, Entity: entity, ID: id, Message: msg}
}

// NotFound reports a missing entity.
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether the caller may re-read and try again.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
