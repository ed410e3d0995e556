package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a history entry does not exist.
	ErrNotFound = errors.New("history entry not found")

	// ErrConflict is returned when an entry with the given ID already exists.
	ErrConflict = errors.New("history entry already exists")
)
