package eventsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"casework/internal/eventsource/metrics"
	"casework/pkg/platform/sentinel"
	"casework/pkg/requestcontext"
)

const tracerName = "casework/internal/eventsource"

// Repository loads and saves one aggregate type against a Store.
//
// Load rebuilds the aggregate by replaying its whole stream. Save appends the
// pending events with the expected version the aggregate was loaded at; a
// concurrent writer surfaces as ErrConcurrencyConflict and is never retried
// here.
type Repository[A Aggregate[E], E Event] struct {
	store     Store
	codec     *Codec[E]
	factory   func(uuid.UUID) A
	observers []Observer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type repoConfig struct {
	observers []Observer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// Option configures a Repository.
type Option func(*repoConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *repoConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *repoConfig) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *repoConfig) {
		c.tracer = t
	}
}

// WithObserver registers a post-commit observer. Observers run in
// registration order.
func WithObserver(o Observer) Option {
	return func(c *repoConfig) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// NewRepository wires a repository for the aggregate produced by factory.
func NewRepository[A Aggregate[E], E Event](store Store, codec *Codec[E], factory func(uuid.UUID) A, opts ...Option) *Repository[A, E] {
	cfg := repoConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}
	return &Repository[A, E]{
		store:     store,
		codec:     codec,
		factory:   factory,
		observers: cfg.observers,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		tracer:    cfg.tracer,
	}
}

// Load replays the aggregate's stream. Returns sentinel.ErrNotFound for an
// empty stream and ErrCorruptStream if any record cannot be replayed.
func (r *Repository[A, E]) Load(ctx context.Context, aggregateID uuid.UUID) (A, error) {
	var zero A
	aggType := string(r.codec.AggregateType())
	streamID := StreamID(r.codec.AggregateType(), aggregateID)

	ctx, span := r.tracer.Start(ctx, "eventsource.Load", trace.WithAttributes(
		attribute.String("aggregate.type", aggType),
		attribute.String("stream.id", streamID),
	))
	defer span.End()
	start := time.Now()

	envelopes, err := r.store.Load(ctx, streamID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return zero, fmt.Errorf("load stream %s: %w", streamID, err)
	}
	if len(envelopes) == 0 {
		return zero, fmt.Errorf("stream %s: %w", streamID, sentinel.ErrNotFound)
	}

	agg := r.factory(aggregateID)
	for _, env := range envelopes {
		e, err := r.codec.Decode(env)
		if err == nil {
			err = agg.ReplayEvent(e, env.Sequence)
		}
		if err != nil {
			var corrupt *CorruptStreamError
			if errors.As(err, &corrupt) && corrupt.StreamID == "" {
				corrupt.StreamID = streamID
			}
			r.reportCorrupt(ctx, span, aggType, env, err)
			return zero, err
		}
	}

	span.SetAttributes(attribute.Int64("aggregate.version", agg.Version()))
	if r.metrics != nil {
		r.metrics.ObserveLoad(aggType, start, len(envelopes))
	}
	return agg, nil
}

func (r *Repository[A, E]) reportCorrupt(ctx context.Context, span trace.Span, aggType string, env Envelope, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "corrupt stream")
	if r.metrics != nil {
		r.metrics.IncrementCorrupt(aggType)
	}
	r.logger.ErrorContext(ctx, "corrupt event stream",
		"stream_id", env.StreamID,
		"sequence", env.Sequence,
		"kind", string(env.Kind),
		"event_id", env.ID.String(),
		"error", err,
	)
}

// Save appends the aggregate's pending events. On success the pending
// buffer is cleared and observers are notified; observer failures are logged
// and never returned.
func (r *Repository[A, E]) Save(ctx context.Context, agg A) error {
	pending := agg.PendingEvents()
	if len(pending) == 0 {
		return nil
	}
	aggType := string(r.codec.AggregateType())
	streamID := StreamID(r.codec.AggregateType(), agg.ID())
	expected := agg.Version() - int64(len(pending))

	ctx, span := r.tracer.Start(ctx, "eventsource.Save", trace.WithAttributes(
		attribute.String("aggregate.type", aggType),
		attribute.String("stream.id", streamID),
		attribute.Int64("expected_version", expected),
		attribute.Int("events", len(pending)),
	))
	defer span.End()
	start := time.Now()

	meta := metadataFrom(ctx)
	records := make([]Record, 0, len(pending))
	for _, e := range pending {
		rec, err := r.codec.Encode(e)
		if err != nil {
			span.RecordError(err)
			return err
		}
		rec.ID = uuid.New()
		rec.AggregateID = agg.ID()
		rec.Metadata = meta
		records = append(records, rec)
	}

	newVersion, err := r.store.Append(ctx, streamID, expected, records)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrConcurrencyConflict) {
			span.SetStatus(codes.Error, "concurrency conflict")
			if r.metrics != nil {
				r.metrics.IncrementConflict(aggType)
			}
			r.logger.WarnContext(ctx, "append rejected by concurrent writer",
				"stream_id", streamID,
				"expected_version", expected,
				"error", err,
			)
			return err
		}
		span.SetStatus(codes.Error, "append failed")
		return fmt.Errorf("append to stream %s: %w", streamID, err)
	}
	if newVersion != agg.Version() {
		r.logger.ErrorContext(ctx, "store version disagrees with aggregate",
			"stream_id", streamID,
			"store_version", newVersion,
			"aggregate_version", agg.Version(),
		)
	}

	agg.MarkCommitted()
	if r.metrics != nil {
		r.metrics.IncrementAppended(aggType, len(records))
	}
	r.notify(ctx, aggType, streamID, expected, len(records))
	if r.metrics != nil {
		r.metrics.ObserveSave(aggType, start)
	}
	return nil
}

// notify reads back the envelopes just written so observers see exactly
// what the store holds, including RecordedAt.
func (r *Repository[A, E]) notify(ctx context.Context, aggType, streamID string, after int64, count int) {
	if len(r.observers) == 0 {
		return
	}
	envelopes, err := r.store.LoadSince(ctx, streamID, after)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to read committed events for observers",
			"stream_id", streamID,
			"error", err,
		)
		return
	}
	if len(envelopes) > count {
		envelopes = envelopes[:count]
	}
	for _, o := range r.observers {
		if err := o.Observe(ctx, envelopes); err != nil {
			if r.metrics != nil {
				r.metrics.IncrementObserverFailure(aggType)
			}
			r.logger.WarnContext(ctx, "event observer failed",
				"stream_id", streamID,
				"error", err,
			)
		}
	}
}

func metadataFrom(ctx context.Context) map[string]string {
	meta := make(map[string]string, 2)
	if actor := requestcontext.ActorID(ctx); !actor.IsNil() {
		meta[MetaActorID] = actor.String()
	}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		meta[MetaRequestID] = reqID
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
