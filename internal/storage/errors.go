package storage

import "errors"

// Storage errors shared by every implementation.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Trade and graduation stores are
	// append-only and do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionConflict is returned by a compare-and-swap update whose
	// expected version no longer matches the stored one. The caller must
	// re-read and retry against fresh state.
	ErrVersionConflict = errors.New("version conflict: state changed since read")
)
