package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"casework/internal/platform/kafka/producer"
	audit "casework/pkg/platform/audit"
	"casework/pkg/platform/circuit"
)

type fakeOutbox struct {
	mu        sync.Mutex
	pending   []audit.OutboxEntry
	published map[uuid.UUID]bool
}

func (f *fakeOutbox) FetchPending(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []audit.OutboxEntry
	for _, e := range f.pending {
		if f.published[e.ID] {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range ids {
		f.published[v] = true
	}
	return nil
}

type fakePublisher struct {
	err  error
	msgs []producer.Message
}

func (f *fakePublisher) Publish(_ context.Context, msgs ...producer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

type WorkerSuite struct {
	suite.Suite
	outbox    *fakeOutbox
	publisher *fakePublisher
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.outbox = &fakeOutbox{published: make(map[uuid.UUID]bool)}
	s.publisher = &fakePublisher{}
}

func (s *WorkerSuite) seed(category audit.EventCategory, key string) audit.OutboxEntry {
	e := audit.OutboxEntry{ID: uuid.New(), Category: category, Key: key, Payload: []byte(`{}`)}
	s.outbox.pending = append(s.outbox.pending, e)
	return e
}

func (s *WorkerSuite) TestRelayPublishesToCategoryTopicsAndMarks() {
	sealed := s.seed(audit.CategoryCompliance, "note-1")
	denied := s.seed(audit.CategorySecurity, "note-2")
	w := NewWorker(s.outbox, s.publisher, "casework.audit")

	n, err := w.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(2, n)

	s.Require().Len(s.publisher.msgs, 2)
	s.Equal("casework.audit.compliance", s.publisher.msgs[0].Topic)
	s.Equal([]byte("note-1"), s.publisher.msgs[0].Key)
	s.Equal(sealed.ID.String(), s.publisher.msgs[0].Headers["event_id"])
	s.Equal("casework.audit.security", s.publisher.msgs[1].Topic)
	s.True(s.outbox.published[sealed.ID])
	s.True(s.outbox.published[denied.ID])

	n, err = w.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *WorkerSuite) TestRelayRespectsBatchSize() {
	for range 5 {
		s.seed(audit.CategoryOperations, "case-1")
	}
	w := NewWorker(s.outbox, s.publisher, "casework.audit", WithBatchSize(2))

	n, err := w.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Len(s.publisher.msgs, 2)
}

func (s *WorkerSuite) TestPublishFailureLeavesRowsPendingAndOpensBreaker() {
	entry := s.seed(audit.CategoryCompliance, "note-1")
	s.publisher.err = errors.New("broker down")
	breaker := circuit.New("test", circuit.WithFailureThreshold(2))
	w := NewWorker(s.outbox, s.publisher, "casework.audit", WithBreaker(breaker))

	_, err := w.RelayOnce(context.Background())
	s.Require().Error(err)
	s.False(s.outbox.published[entry.ID])
	s.False(breaker.IsOpen())

	_, err = w.RelayOnce(context.Background())
	s.Require().Error(err)
	s.True(breaker.IsOpen())

	s.publisher.err = nil
	n, err := w.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(1, n)
	s.True(s.outbox.published[entry.ID])
}
