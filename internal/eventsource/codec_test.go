package eventsource_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casework/internal/eventsource"
)

func TestCodec(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 15, 123456789, time.UTC)

	t.Run("encode then decode yields the same event", func(t *testing.T) {
		in := incremented{tallyBase: tallyBase{At: at}, By: 7}
		rec, err := tallyCodec.Encode(in)
		require.NoError(t, err)
		assert.Equal(t, tallyType, rec.AggregateType)
		assert.Equal(t, eventsource.Kind("tally.incremented"), rec.Kind)
		assert.Equal(t, eventsource.CurrentSchemaVersion, rec.SchemaVersion)

		out, err := tallyCodec.Decode(eventsource.Envelope{Record: rec, Sequence: 1})
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("encoding an unregistered kind fails", func(t *testing.T) {
		_, err := tallyCodec.Encode(unregistered{})
		require.Error(t, err)
	})

	t.Run("decoding an unknown kind is a corrupt stream", func(t *testing.T) {
		env := eventsource.Envelope{
			Record:   eventsource.Record{ID: uuid.New(), Kind: "tally.exploded", Payload: json.RawMessage(`{}`), SchemaVersion: 1},
			StreamID: "tally-x",
			Sequence: 4,
		}
		_, err := tallyCodec.Decode(env)
		require.ErrorIs(t, err, eventsource.ErrCorruptStream)

		var corrupt *eventsource.CorruptStreamError
		require.ErrorAs(t, err, &corrupt)
		assert.Equal(t, int64(4), corrupt.Sequence)
		assert.Equal(t, "tally-x", corrupt.StreamID)
	})

	t.Run("decoding a newer schema version is a corrupt stream", func(t *testing.T) {
		env := eventsource.Envelope{
			Record: eventsource.Record{Kind: "tally.incremented", Payload: json.RawMessage(`{"by":1}`), SchemaVersion: eventsource.CurrentSchemaVersion + 1},
		}
		_, err := tallyCodec.Decode(env)
		require.ErrorIs(t, err, eventsource.ErrCorruptStream)
	})

	t.Run("undecodable payload is a corrupt stream", func(t *testing.T) {
		env := eventsource.Envelope{
			Record: eventsource.Record{Kind: "tally.incremented", Payload: json.RawMessage(`{"by":"seven"}`), SchemaVersion: 1},
		}
		_, err := tallyCodec.Decode(env)
		require.ErrorIs(t, err, eventsource.ErrCorruptStream)
	})

	t.Run("kinds are listed in order", func(t *testing.T) {
		assert.Equal(t, []eventsource.Kind{"tally.incremented", "tally.renamed"}, tallyCodec.Kinds())
	})

	t.Run("registering a kind twice panics", func(t *testing.T) {
		assert.Panics(t, func() {
			eventsource.NewCodec[tallyEvent]("dup").
				Register("tally.renamed", decodeTally[renamed]).
				Register("tally.renamed", decodeTally[renamed])
		})
	})
}

func TestStreamID(t *testing.T) {
	aggregateID := uuid.MustParse("6f1c1f43-8d55-4b8c-9c7e-1b1f6cf5e0a1")
	assert.Equal(t, "case-6f1c1f43-8d55-4b8c-9c7e-1b1f6cf5e0a1", eventsource.StreamID("case", aggregateID))
}
