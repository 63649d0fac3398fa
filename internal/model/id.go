package model

import "github.com/google/uuid"

// NewID returns a time-ordered UUIDv7 string. Ordering by id therefore
// follows creation order, which breaks ties between rows written in the
// same instant.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func ensureID(id *string) {
	if *id == "" {
		*id = NewID()
	}
}
