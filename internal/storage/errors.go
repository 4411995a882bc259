package storage

import "errors"

// Sentinel errors shared by every Store implementation. Backends wrap
// driver errors with these so callers can test with errors.Is.
var (
	// ErrNotFound: no row for the requested address or ID.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicateKey: an address or claim ID is already taken.
	ErrDuplicateKey = errors.New("storage: record already exists")
	// ErrInvalidInput: a nil record, or a write a table constraint rejected
	// (for example claimed exceeding the allocation).
	ErrInvalidInput = errors.New("storage: invalid record")
)
