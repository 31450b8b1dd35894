package eventsource

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Decoder turns a stored payload back into a typed event.
type Decoder[E Event] func(payload []byte) (E, error)

// Codec maps an aggregate's closed event set to and from stored records.
// Every kind the aggregate can produce must be registered; decoding an
// unregistered kind is a corrupt stream.
type Codec[E Event] struct {
	aggregate AggregateType
	decoders  map[Kind]Decoder[E]
}

// NewCodec creates an empty codec for aggregateType.
func NewCodec[E Event](aggregateType AggregateType) *Codec[E] {
	return &Codec[E]{
		aggregate: aggregateType,
		decoders:  make(map[Kind]Decoder[E]),
	}
}

// Register adds a decoder for kind. Registering a kind twice panics; codecs
// are built once at package init.
func (c *Codec[E]) Register(kind Kind, decode Decoder[E]) *Codec[E] {
	if _, exists := c.decoders[kind]; exists {
		panic(fmt.Sprintf("eventsource: kind %q registered twice for %s", kind, c.aggregate))
	}
	c.decoders[kind] = decode
	return c
}

// AggregateType returns the aggregate this codec serves.
func (c *Codec[E]) AggregateType() AggregateType {
	return c.aggregate
}

// Kinds lists the registered kinds in lexical order.
func (c *Codec[E]) Kinds() []Kind {
	kinds := make([]Kind, 0, len(c.decoders))
	for k := range c.decoders {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Encode serializes e into a record. ID, AggregateID and Metadata are left
// for the caller.
func (c *Codec[E]) Encode(e E) (Record, error) {
	kind := e.EventKind()
	if _, ok := c.decoders[kind]; !ok {
		return Record{}, fmt.Errorf("encode %s event: kind %q not registered", c.aggregate, kind)
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("encode %s event %q: %w", c.aggregate, kind, err)
	}
	return Record{
		AggregateType: c.aggregate,
		Kind:          kind,
		SchemaVersion: CurrentSchemaVersion,
		OccurredAt:    NormalizeTime(e.OccurredAt()),
		Payload:       payload,
	}, nil
}

// Decode turns a stored envelope back into a typed event.
func (c *Codec[E]) Decode(env Envelope) (E, error) {
	var zero E
	decode, ok := c.decoders[env.Kind]
	if !ok {
		return zero, &CorruptStreamError{
			StreamID: env.StreamID,
			Sequence: env.Sequence,
			Kind:     env.Kind,
			Reason:   "unknown event kind for " + string(c.aggregate),
		}
	}
	if env.SchemaVersion > CurrentSchemaVersion {
		return zero, &CorruptStreamError{
			StreamID: env.StreamID,
			Sequence: env.Sequence,
			Kind:     env.Kind,
			Reason:   fmt.Sprintf("schema version %d is newer than supported %d", env.SchemaVersion, CurrentSchemaVersion),
		}
	}
	e, err := decode(env.Payload)
	if err != nil {
		return zero, &CorruptStreamError{
			StreamID: env.StreamID,
			Sequence: env.Sequence,
			Kind:     env.Kind,
			Reason:   "payload does not decode",
			Err:      err,
		}
	}
	return e, nil
}
