// Package sentinel holds the storage facts that cross package boundaries.
// Stores return them, possibly wrapped, and services translate them into
// coded domain errors. Bad input is never a sentinel; use pkg/domain-errors.
package sentinel

import "errors"

var (
	// ErrNotFound means the row, stream or key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a write lost a race against another writer.
	ErrConflict = errors.New("conflict")
)
