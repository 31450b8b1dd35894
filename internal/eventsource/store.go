package eventsource

import "context"

// Store is the append-only, per-stream event log.
// Implementations must be safe for concurrent use and linearizable per stream.
type Store interface {
	// Append adds events to streamID atomically: either all land with
	// contiguous sequence numbers starting at expectedVersion+1, or none do.
	// expectedVersion 0 means the stream must not exist yet.
	// Returns the new stream version, or a *ConflictError (matching
	// ErrConcurrencyConflict) when the stream's version differs.
	Append(ctx context.Context, streamID string, expectedVersion int64, events []Record) (int64, error)

	// Load returns every envelope of streamID ordered by sequence.
	// Returns an empty slice if the stream is unknown.
	Load(ctx context.Context, streamID string) ([]Envelope, error)

	// LoadSince returns envelopes with sequence > afterSequence, ordered.
	LoadSince(ctx context.Context, streamID string, afterSequence int64) ([]Envelope, error)

	// Version returns the stream's current version, 0 if unknown.
	Version(ctx context.Context, streamID string) (int64, error)
}

// Observer receives envelopes after they are committed, in stream order.
// Read-model projections implement it. Observers run after the append
// succeeded, so their failures never fail the command.
type Observer interface {
	Observe(ctx context.Context, envelopes []Envelope) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, envelopes []Envelope) error

func (f ObserverFunc) Observe(ctx context.Context, envelopes []Envelope) error {
	return f(ctx, envelopes)
}
