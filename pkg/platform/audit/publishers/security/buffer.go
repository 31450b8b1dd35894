package security

import (
	"slices"
	"sync"

	audit "casework/pkg/platform/audit"
)

const defaultBufferCapacity = 10000

// RingBuffer is a bounded FIFO of security events. When full, Enqueue evicts
// the oldest event that is not critical; only a buffer holding nothing but
// critical events gives up its oldest critical one.
type RingBuffer struct {
	mu       sync.Mutex
	events   []audit.Event
	capacity int
	dropped  int64
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = defaultBufferCapacity
	}
	return &RingBuffer{
		events:   make([]audit.Event, 0, min(capacity, 1024)),
		capacity: capacity,
	}
}

// Enqueue appends event and reports whether another event was evicted.
func (b *RingBuffer) Enqueue(event audit.Event) (evicted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) >= b.capacity {
		victim := slices.IndexFunc(b.events, func(e audit.Event) bool {
			return e.Severity != audit.SeverityCritical
		})
		if victim < 0 {
			victim = 0
		}
		b.events = slices.Delete(b.events, victim, victim+1)
		b.dropped++
		evicted = true
	}
	b.events = append(b.events, event)
	return evicted
}

// DequeueBatch removes and returns up to n of the oldest events.
func (b *RingBuffer) DequeueBatch(n int) []audit.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == 0 || n <= 0 {
		return nil
	}
	n = min(n, len(b.events))
	batch := slices.Clone(b.events[:n])
	b.events = slices.Delete(b.events, 0, n)
	return batch
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Dropped is the number of events evicted since construction.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
