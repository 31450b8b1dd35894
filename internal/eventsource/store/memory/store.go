// Package memory provides an in-memory eventsource.Store for tests and
// single-process development.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"casework/internal/eventsource"
)

// Store is a thread-safe in-memory event store.
// The zero value is ready for use.
type Store struct {
	mu      sync.RWMutex
	streams map[string][]eventsource.Envelope
	ids     map[uuid.UUID]struct{}
	clock   func() time.Time
}

// New creates a new in-memory event store.
func New() *Store {
	return &Store{
		streams: make(map[string][]eventsource.Envelope),
		ids:     make(map[uuid.UUID]struct{}),
	}
}

// WithClock overrides the clock used for RecordedAt. Test use only.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
	return s
}

// Append implements eventsource.Store. Validation happens before any write,
// so a rejected batch leaves the stream untouched.
func (s *Store) Append(_ context.Context, streamID string, expectedVersion int64, events []eventsource.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streams == nil {
		s.streams = make(map[string][]eventsource.Envelope)
	}
	if s.ids == nil {
		s.ids = make(map[uuid.UUID]struct{})
	}

	current := int64(len(s.streams[streamID]))
	if current != expectedVersion {
		return current, &eventsource.ConflictError{
			StreamID: streamID,
			Expected: expectedVersion,
			Actual:   current,
		}
	}
	if len(events) == 0 {
		return current, nil
	}

	batchIDs := make(map[uuid.UUID]struct{}, len(events))
	for _, rec := range events {
		if _, exists := s.ids[rec.ID]; exists {
			return current, eventsource.ErrDuplicateEvent
		}
		if _, exists := batchIDs[rec.ID]; exists {
			return current, eventsource.ErrDuplicateEvent
		}
		batchIDs[rec.ID] = struct{}{}
	}

	now := time.Now
	if s.clock != nil {
		now = s.clock
	}
	recordedAt := now().UTC()
	for i, rec := range events {
		env := eventsource.Envelope{
			Record:     copyRecord(rec),
			StreamID:   streamID,
			Sequence:   current + int64(i) + 1,
			RecordedAt: recordedAt,
		}
		s.streams[streamID] = append(s.streams[streamID], env)
		s.ids[rec.ID] = struct{}{}
	}
	return current + int64(len(events)), nil
}

// Load implements eventsource.Store.
func (s *Store) Load(ctx context.Context, streamID string) ([]eventsource.Envelope, error) {
	return s.LoadSince(ctx, streamID, 0)
}

// LoadSince implements eventsource.Store. Returned envelopes are copies.
func (s *Store) LoadSince(_ context.Context, streamID string, afterSequence int64) ([]eventsource.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[streamID]
	if afterSequence < 0 {
		afterSequence = 0
	}
	if afterSequence >= int64(len(stream)) {
		return []eventsource.Envelope{}, nil
	}
	out := make([]eventsource.Envelope, 0, int64(len(stream))-afterSequence)
	for _, env := range stream[afterSequence:] {
		cp := env
		cp.Record = copyRecord(env.Record)
		out = append(out, cp)
	}
	return out, nil
}

// Version implements eventsource.Store.
func (s *Store) Version(_ context.Context, streamID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.streams[streamID])), nil
}

// Streams lists the known stream ids. Test use only.
func (s *Store) Streams() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.streams))
	for id := range s.streams {
		out = append(out, id)
	}
	return out
}

func copyRecord(rec eventsource.Record) eventsource.Record {
	cp := rec
	if rec.Payload != nil {
		cp.Payload = append(json.RawMessage(nil), rec.Payload...)
	}
	if rec.Metadata != nil {
		cp.Metadata = make(map[string]string, len(rec.Metadata))
		for k, v := range rec.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}
