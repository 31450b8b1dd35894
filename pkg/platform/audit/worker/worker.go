// Package worker relays audit outbox rows to Kafka.
//
// Each pass locks a batch of pending rows inside one transaction, publishes
// them to the category topic keyed by resource id, and marks them published
// before commit. A failed publish rolls the batch back so it is retried on
// the next pass; consumers must tolerate duplicates.
package worker

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"casework/internal/platform/kafka/producer"
	audit "casework/pkg/platform/audit"
	"casework/pkg/platform/circuit"
	txcontext "casework/pkg/platform/tx"
)

// Publisher is the broker side of the relay.
type Publisher interface {
	Publish(ctx context.Context, msgs ...producer.Message) error
}

// Worker polls the outbox and publishes pending rows.
type Worker struct {
	outbox      audit.Outbox
	publisher   Publisher
	topicPrefix string
	runInTx     func(ctx context.Context, fn func(ctx context.Context) error) error
	interval    time.Duration
	batchSize   int
	breaker     *circuit.Breaker
	logger      *slog.Logger
	metrics     *Metrics
}

// Option configures the Worker.
type Option func(*Worker)

// WithDB runs each pass inside a transaction on db so FetchPending locks rows.
func WithDB(db *sql.DB) Option {
	return func(w *Worker) {
		w.runInTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return txcontext.Run(ctx, db, fn)
		}
	}
}

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBatchSize sets how many rows one pass publishes at most.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithBreaker replaces the default publish breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(w *Worker) {
		if b != nil {
			w.breaker = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func NewWorker(outbox audit.Outbox, publisher Publisher, topicPrefix string, opts ...Option) *Worker {
	w := &Worker{
		outbox:      outbox,
		publisher:   publisher,
		topicPrefix: topicPrefix,
		runInTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
		interval:  time.Second,
		batchSize: 100,
		breaker:   circuit.New("audit-outbox", circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(1)),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run relays until ctx is cancelled. While the breaker is open, passes are
// spaced out to one per ten intervals.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	skipped := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if w.breaker.IsOpen() && skipped < 9 {
			skipped++
			continue
		}
		skipped = 0

		for {
			n, err := w.RelayOnce(ctx)
			if err != nil || n < w.batchSize {
				break
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many rows it published.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	published := 0
	err := w.runInTx(ctx, func(txCtx context.Context) error {
		entries, err := w.outbox.FetchPending(txCtx, w.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		msgs := make([]producer.Message, len(entries))
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			msgs[i] = producer.Message{
				Topic:   audit.Topic(w.topicPrefix, e.Category),
				Key:     []byte(e.Key),
				Value:   e.Payload,
				Headers: map[string]string{"event_id": e.ID.String()},
			}
			ids[i] = e.ID
		}

		if err := w.publisher.Publish(txCtx, msgs...); err != nil {
			_, change := w.breaker.RecordFailure()
			if w.metrics != nil {
				w.metrics.IncPublishFailures()
			}
			if change.Opened {
				w.logger.ErrorContext(ctx, "audit outbox breaker opened", "error", err)
			}
			return err
		}
		if _, change := w.breaker.RecordSuccess(); change.Closed {
			w.logger.InfoContext(ctx, "audit outbox breaker closed")
		}

		if err := w.outbox.MarkPublished(txCtx, ids); err != nil {
			return err
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		w.logger.WarnContext(ctx, "audit outbox relay failed", "error", err)
		return 0, err
	}
	if w.metrics != nil && published > 0 {
		w.metrics.AddPublished(published)
	}
	return published, nil
}
