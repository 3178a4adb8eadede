package models

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist or is
	// outside the caller's reach.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("record already exists")
)
