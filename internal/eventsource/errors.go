package eventsource

import (
	"errors"
	"fmt"

	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/sentinel"
)

var (
	// ErrConcurrencyConflict means the stream's current version did not match
	// the expected version at append time. Recoverable by reload-and-retry,
	// which is the caller's decision.
	ErrConcurrencyConflict = fmt.Errorf("concurrency %w", sentinel.ErrConflict)

	// ErrCorruptStream means replay met an event the aggregate cannot handle:
	// an unknown kind, an undecodable payload or a sequence gap. This is a
	// deployment or schema-evolution bug, never a normal runtime path.
	ErrCorruptStream = errors.New("corrupt event stream")

	// ErrDuplicateEvent means a record ID was appended twice.
	ErrDuplicateEvent = errors.New("duplicate event id")
)

// ConflictError provides details about a failed optimistic append.
type ConflictError struct {
	StreamID string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrency conflict on stream %s: expected version %d, actual %d", e.StreamID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error {
	return ErrConcurrencyConflict
}

// CorruptStreamError pinpoints the record replay could not handle.
type CorruptStreamError struct {
	StreamID string
	Sequence int64
	Kind     Kind
	Reason   string
	Err      error
}

func (e *CorruptStreamError) Error() string {
	msg := fmt.Sprintf("corrupt stream %s at sequence %d (kind %q): %s", e.StreamID, e.Sequence, e.Kind, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is match both ErrCorruptStream and the wrapped cause.
func (e *CorruptStreamError) Is(target error) bool {
	return target == ErrCorruptStream
}

func (e *CorruptStreamError) Unwrap() error {
	return e.Err
}

// ToDomainError translates repository failures into coded domain errors for
// the command services. Coded errors pass through unchanged.
func ToDomainError(err error, resource string) error {
	var coded *dErrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, resource+" not found")
	case errors.Is(err, ErrConcurrencyConflict):
		return dErrors.Wrap(err, dErrors.CodeConcurrencyConflict, resource+" was modified concurrently")
	case errors.Is(err, ErrCorruptStream):
		return dErrors.Wrap(err, dErrors.CodeCorruptStream, resource+" history cannot be replayed")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+resource)
	}
}
