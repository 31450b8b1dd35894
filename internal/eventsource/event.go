// Package eventsource is the event-sourced aggregate substrate: the event
// store port, the aggregate root mechanics (apply / replay / pending buffer),
// payload codecs and a generic repository that ties them together.
//
// The store port is the single serialization point per stream. Two writers
// holding the same expected version race on Append and exactly one wins; the
// loser receives ErrConcurrencyConflict and nothing in this package retries.
package eventsource

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed tag naming an event type, e.g. "case.opened".
type Kind string

// AggregateType names the aggregate a stream belongs to, e.g. "case".
type AggregateType string

// Event is implemented by every domain event payload. Each aggregate narrows
// this further to its own sealed interface so its event set stays closed.
type Event interface {
	EventKind() Kind
	OccurredAt() time.Time
}

// CurrentSchemaVersion is stamped on every record written by this build.
const CurrentSchemaVersion = 1

// Metadata keys written by the repository.
const (
	MetaActorID   = "actor_id"
	MetaRequestID = "request_id"
)

// Record is an encoded event ready to be appended. It is immutable once
// appended.
type Record struct {
	ID            uuid.UUID         `json:"id"`
	AggregateType AggregateType     `json:"aggregate_type"`
	AggregateID   uuid.UUID         `json:"aggregate_id"`
	Kind          Kind              `json:"kind"`
	SchemaVersion int               `json:"schema_version"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Envelope is a record plus its store-assigned position. Sequence numbers are
// 1-based and contiguous per stream.
type Envelope struct {
	Record
	StreamID   string    `json:"stream_id"`
	Sequence   int64     `json:"sequence"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StreamID builds the stream identifier for an aggregate instance using the
// "{type}-{id}" convention.
func StreamID(aggregateType AggregateType, aggregateID uuid.UUID) string {
	return string(aggregateType) + "-" + aggregateID.String()
}
