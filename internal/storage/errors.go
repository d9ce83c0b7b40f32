package storage

import "errors"

// Sentinel errors returned by every audit trail backend. Records are written
// once and never updated.
var (
	// ErrNotFound means no record has the requested key.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey means a record with the same key was already written.
	ErrDuplicateKey = errors.New("duplicate key: audit records are immutable")

	// ErrInvalidInput means a record is missing a field every backend requires.
	ErrInvalidInput = errors.New("invalid record")
)
