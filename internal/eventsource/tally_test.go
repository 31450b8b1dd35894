package eventsource_test

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"casework/internal/eventsource"
)

// tally is a minimal aggregate used to exercise the substrate.

type tallyEvent interface {
	eventsource.Event
	isTallyEvent()
}

type tallyBase struct {
	At time.Time `json:"occurred_at"`
}

func (b tallyBase) OccurredAt() time.Time { return b.At }
func (tallyBase) isTallyEvent()           {}

type incremented struct {
	tallyBase
	By int `json:"by"`
}

func (incremented) EventKind() eventsource.Kind { return "tally.incremented" }

type renamed struct {
	tallyBase
	Name string `json:"name"`
}

func (renamed) EventKind() eventsource.Kind { return "tally.renamed" }

// unregistered is a valid tally event the codec does not know about.
type unregistered struct {
	tallyBase
}

func (unregistered) EventKind() eventsource.Kind { return "tally.unregistered" }

type tally struct {
	eventsource.Root[tallyEvent]
	total     int
	name      string
	updatedAt time.Time
}

func newTally(aggregateID uuid.UUID) *tally {
	return &tally{Root: eventsource.NewRoot[tallyEvent](aggregateID)}
}

func (t *tally) Increment(by int, now time.Time) {
	t.Apply(incremented{tallyBase: tallyBase{At: eventsource.NormalizeTime(now)}, By: by}, t.when)
}

func (t *tally) Rename(name string, now time.Time) {
	t.Apply(renamed{tallyBase: tallyBase{At: eventsource.NormalizeTime(now)}, Name: name}, t.when)
}

func (t *tally) ReplayEvent(e tallyEvent, sequence int64) error {
	return t.Replay(e, sequence, t.when)
}

func (t *tally) when(e tallyEvent) error {
	switch ev := e.(type) {
	case incremented:
		t.total += ev.By
		t.updatedAt = ev.At
	case renamed:
		t.name = ev.Name
		t.updatedAt = ev.At
	default:
		return eventsource.UnhandledEvent(e)
	}
	return nil
}

const tallyType eventsource.AggregateType = "tally"

var tallyCodec = eventsource.NewCodec[tallyEvent](tallyType).
	Register("tally.incremented", decodeTally[incremented]).
	Register("tally.renamed", decodeTally[renamed])

func decodeTally[T tallyEvent](data []byte) (tallyEvent, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e, nil
}
