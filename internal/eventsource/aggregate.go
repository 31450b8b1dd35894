package eventsource

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Aggregate is what the repository needs from an event-sourced aggregate.
// Aggregates get the first four methods by embedding Root.
type Aggregate[E Event] interface {
	ID() uuid.UUID
	Version() int64
	PendingEvents() []E
	MarkCommitted()
	// ReplayEvent re-applies a stored event at its store-assigned sequence.
	ReplayEvent(e E, sequence int64) error
}

// Root carries the mechanics shared by every aggregate: identity, the version
// counter and the buffer of events not yet persisted.
//
// Invariant: version equals the number of events applied or replayed since
// construction. Replay never touches the pending buffer, so an aggregate
// rebuilt from its stream is indistinguishable from one built by commands.
type Root[E Event] struct {
	id      uuid.UUID
	version int64
	pending []E
}

// NewRoot returns an empty root for the aggregate identified by id.
func NewRoot[E Event](id uuid.UUID) Root[E] {
	return Root[E]{id: id}
}

func (r *Root[E]) ID() uuid.UUID {
	return r.id
}

func (r *Root[E]) Version() int64 {
	return r.version
}

// PendingEvents returns a copy of the events produced since the last commit.
func (r *Root[E]) PendingEvents() []E {
	out := make([]E, len(r.pending))
	copy(out, r.pending)
	return out
}

// MarkCommitted clears the pending buffer after a successful append.
func (r *Root[E]) MarkCommitted() {
	r.pending = nil
}

// Apply records a newly produced event: it bumps the version, buffers the
// event and dispatches it to when. Aggregates only apply events they built
// themselves, so a dispatch failure is a programming error and panics.
func (r *Root[E]) Apply(e E, when func(E) error) {
	r.version++
	r.pending = append(r.pending, e)
	if err := when(e); err != nil {
		panic(fmt.Sprintf("eventsource: apply %s: %v", e.EventKind(), err))
	}
}

// Replay dispatches a stored event to when and sets the version to its
// sequence. Sequences must be contiguous from 1.
func (r *Root[E]) Replay(e E, sequence int64, when func(E) error) error {
	if sequence != r.version+1 {
		return &CorruptStreamError{
			Sequence: sequence,
			Kind:     e.EventKind(),
			Reason:   fmt.Sprintf("sequence gap: expected %d", r.version+1),
		}
	}
	if err := when(e); err != nil {
		return &CorruptStreamError{
			Sequence: sequence,
			Kind:     e.EventKind(),
			Reason:   "event not handled",
			Err:      err,
		}
	}
	r.version = sequence
	return nil
}

// UnhandledEvent is returned by an aggregate's dispatch for an event outside
// its closed set.
func UnhandledEvent(e Event) error {
	return fmt.Errorf("unhandled event kind %q (%T)", e.EventKind(), e)
}

// NormalizeTime strips the monotonic reading and location so a timestamp
// held in memory equals the same timestamp decoded from a stored payload.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}

// NormalizeTimePtr is NormalizeTime for optional timestamps.
func NormalizeTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := NormalizeTime(*t)
	return &n
}
