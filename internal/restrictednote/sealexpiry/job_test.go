package sealexpiry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"casework/internal/confidentiality"
	"casework/internal/eventsource"
	"casework/internal/eventsource/store/memory"
	"casework/internal/readmodel"
	"casework/internal/restrictednote/models"
	"casework/internal/restrictednote/service"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/requestcontext"
)

type fixedIndex struct {
	due []readmodel.SealInfo
	err error
	at  time.Time
}

func (f *fixedIndex) ExpiringBefore(_ context.Context, t time.Time) ([]readmodel.SealInfo, error) {
	f.at = t
	return f.due, f.err
}

type failingExpirer struct{ err error }

func (f failingExpirer) ExpireSeal(context.Context, id.NoteID) (*models.RestrictedNote, error) {
	return nil, f.err
}

type SealExpirySuite struct {
	suite.Suite
	logger *slog.Logger
	notes  *service.Service
	author id.ActorID
	system id.ActorID
	now    time.Time
}

func TestSealExpirySuite(t *testing.T) {
	suite.Run(t, new(SealExpirySuite))
}

func (s *SealExpirySuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := eventsource.NewRepository(memory.New(), models.Codec, models.Factory)
	s.notes = service.New(repo, service.WithLogger(s.logger))
	s.author = id.ActorID(uuid.New())
	s.system = id.ActorID(uuid.New())
	s.now = time.Date(2026, 10, 2, 12, 0, 0, 0, time.UTC)
}

func (s *SealExpirySuite) sealed(expires time.Time) id.NoteID {
	ctx := requestcontext.WithActor(context.Background(), s.author, "Author", []string{"CASE_WORKER"})
	ctx = requestcontext.WithTime(ctx, s.now)
	n, err := s.notes.CreateNote(ctx, service.CreateNoteCommand{
		ClientID: id.ClientID(uuid.New()),
		NoteType: confidentiality.NoteTypeGeneral,
		Content:  "address withheld",
	})
	s.Require().NoError(err)
	_, err = s.notes.Seal(ctx, n.NoteID(), service.SealCommand{Reason: "hold", IsTemporary: true, ExpiresAt: &expires})
	s.Require().NoError(err)
	return n.NoteID()
}

func (s *SealExpirySuite) TestExpireDueAt() {
	due := s.sealed(s.now.Add(time.Hour))
	early := s.sealed(s.now.Add(48 * time.Hour))
	at := s.now.Add(2 * time.Hour)

	index := &fixedIndex{due: []readmodel.SealInfo{{NoteID: due}, {NoteID: early}}}
	job := New(index, s.notes, s.system, s.logger)

	lifted, err := job.ExpireDueAt(context.Background(), at)
	s.Require().NoError(err)
	s.Equal(1, lifted, "a seal not yet due by the note's own clock is skipped")
	s.Equal(at, index.at)

	ctx := requestcontext.WithActor(context.Background(), s.author, "Author", []string{"CASE_WORKER"})
	n, _, err := s.notes.ViewNote(ctx, due, "")
	s.Require().NoError(err)
	s.False(n.IsSealed())
}

func (s *SealExpirySuite) TestIndexFailure() {
	job := New(&fixedIndex{err: errors.New("redis down")}, s.notes, s.system, s.logger)
	_, err := job.ExpireDueAt(context.Background(), s.now)
	s.ErrorContains(err, "list expiring seals")
}

func (s *SealExpirySuite) TestFailuresAreCounted() {
	index := &fixedIndex{due: []readmodel.SealInfo{{NoteID: id.NoteID(uuid.New())}}}
	job := New(index, failingExpirer{err: dErrors.New(dErrors.CodeInternal, "boom")}, s.system, s.logger)

	lifted, err := job.ExpireDueAt(context.Background(), s.now)
	s.Zero(lifted)
	s.ErrorContains(err, "1 of 1")
}

func (s *SealExpirySuite) TestStartStopsWithContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(&fixedIndex{}, s.notes, s.system, s.logger).Start(ctx, time.Hour)
	s.ErrorIs(err, context.Canceled)
}
