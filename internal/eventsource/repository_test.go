package eventsource_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"casework/internal/eventsource"
	"casework/internal/eventsource/store/memory"
	id "casework/pkg/domain"
	"casework/pkg/platform/sentinel"
	"casework/pkg/requestcontext"
)

type RepositorySuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	repo     *eventsource.Repository[*tally, tallyEvent]
	observed []eventsource.Envelope
	now      time.Time
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.observed = nil
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.repo = eventsource.NewRepository(s.store, tallyCodec, newTally,
		eventsource.WithObserver(eventsource.ObserverFunc(func(_ context.Context, envs []eventsource.Envelope) error {
			s.observed = append(s.observed, envs...)
			return nil
		})),
	)
}

func (s *RepositorySuite) seed(increments int) uuid.UUID {
	t := newTally(uuid.New())
	for i := 0; i < increments; i++ {
		t.Increment(1, s.now.Add(time.Duration(i)*time.Minute))
	}
	s.Require().NoError(s.repo.Save(s.ctx, t))
	return t.ID()
}

func (s *RepositorySuite) TestLoad() {
	s.Run("unknown aggregate is not found", func() {
		_, err := s.repo.Load(s.ctx, uuid.New())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("replayed state matches the state built by commands", func() {
		t := newTally(uuid.New())
		t.Increment(2, time.Now())
		t.Rename("intake", time.Now())
		t.Increment(5, time.Now())
		s.Require().NoError(s.repo.Save(s.ctx, t))

		loaded, err := s.repo.Load(s.ctx, t.ID())
		s.Require().NoError(err)
		s.Equal(t.Version(), loaded.Version())
		s.Equal(t.total, loaded.total)
		s.Equal(t.name, loaded.name)
		s.True(t.updatedAt.Equal(loaded.updatedAt))
		s.Equal(t.updatedAt, loaded.updatedAt)
		s.Empty(loaded.PendingEvents())
	})

	s.Run("unknown kind in the stream is a corrupt stream", func() {
		aggregateID := s.seed(1)
		streamID := eventsource.StreamID(tallyType, aggregateID)
		_, err := s.store.Append(s.ctx, streamID, 1, []eventsource.Record{{
			ID:            uuid.New(),
			AggregateType: tallyType,
			AggregateID:   aggregateID,
			Kind:          "tally.exploded",
			SchemaVersion: 1,
			Payload:       json.RawMessage(`{}`),
		}})
		s.Require().NoError(err)

		_, err = s.repo.Load(s.ctx, aggregateID)
		s.Require().ErrorIs(err, eventsource.ErrCorruptStream)

		var corrupt *eventsource.CorruptStreamError
		s.Require().True(errors.As(err, &corrupt))
		s.Equal(streamID, corrupt.StreamID)
		s.Equal(int64(2), corrupt.Sequence)
	})
}

func (s *RepositorySuite) TestSave() {
	s.Run("saving without pending events is a no-op", func() {
		aggregateID := s.seed(2)
		loaded, err := s.repo.Load(s.ctx, aggregateID)
		s.Require().NoError(err)
		s.Require().NoError(s.repo.Save(s.ctx, loaded))

		version, err := s.store.Version(s.ctx, eventsource.StreamID(tallyType, aggregateID))
		s.Require().NoError(err)
		s.Equal(int64(2), version)
	})

	s.Run("records carry actor and request metadata", func() {
		actor := id.ActorID(uuid.New())
		ctx := requestcontext.WithActor(s.ctx, actor, "Dana", nil)
		ctx = requestcontext.WithRequestID(ctx, "req-42")

		t := newTally(uuid.New())
		t.Increment(1, s.now)
		s.Require().NoError(s.repo.Save(ctx, t))

		envs, err := s.store.Load(s.ctx, eventsource.StreamID(tallyType, t.ID()))
		s.Require().NoError(err)
		s.Require().Len(envs, 1)
		s.Equal(actor.String(), envs[0].Metadata[eventsource.MetaActorID])
		s.Equal("req-42", envs[0].Metadata[eventsource.MetaRequestID])
		s.Equal(t.ID(), envs[0].AggregateID)
		s.True(s.now.Equal(envs[0].OccurredAt))
	})

	s.Run("observers see committed envelopes in order", func() {
		s.observed = nil
		t := newTally(uuid.New())
		t.Increment(1, s.now)
		t.Rename("a", s.now)
		s.Require().NoError(s.repo.Save(s.ctx, t))

		s.Require().Len(s.observed, 2)
		s.Equal(int64(1), s.observed[0].Sequence)
		s.Equal(int64(2), s.observed[1].Sequence)
		s.Equal(eventsource.Kind("tally.renamed"), s.observed[1].Kind)
	})

	s.Run("failing observer does not fail the save", func() {
		repo := eventsource.NewRepository(s.store, tallyCodec, newTally,
			eventsource.WithObserver(eventsource.ObserverFunc(func(context.Context, []eventsource.Envelope) error {
				return errors.New("projection down")
			})),
		)
		t := newTally(uuid.New())
		t.Increment(1, s.now)
		s.Require().NoError(repo.Save(s.ctx, t))
		s.Empty(t.PendingEvents())
	})
}

// TestConcurrentWriters covers the lost-update scenario: two writers load the
// same version, the first append wins and the second must reload.
func (s *RepositorySuite) TestConcurrentWriters() {
	aggregateID := s.seed(3)

	first, err := s.repo.Load(s.ctx, aggregateID)
	s.Require().NoError(err)
	second, err := s.repo.Load(s.ctx, aggregateID)
	s.Require().NoError(err)
	s.Require().Equal(int64(3), first.Version())
	s.Require().Equal(int64(3), second.Version())

	first.Increment(10, s.now)
	s.Require().NoError(s.repo.Save(s.ctx, first))

	second.Rename("stale", s.now)
	err = s.repo.Save(s.ctx, second)
	s.Require().ErrorIs(err, eventsource.ErrConcurrencyConflict)

	var conflict *eventsource.ConflictError
	s.Require().True(errors.As(err, &conflict))
	s.Equal(int64(3), conflict.Expected)
	s.Equal(int64(4), conflict.Actual)
	s.Len(second.PendingEvents(), 1, "rejected events stay pending")

	reloaded, err := s.repo.Load(s.ctx, aggregateID)
	s.Require().NoError(err)
	s.Equal(int64(4), reloaded.Version())
	s.Equal(13, reloaded.total)

	reloaded.Rename("fresh", s.now)
	s.Require().NoError(s.repo.Save(s.ctx, reloaded))

	final, err := s.repo.Load(s.ctx, aggregateID)
	s.Require().NoError(err)
	s.Equal(int64(5), final.Version())
	s.Equal("fresh", final.name)
}
