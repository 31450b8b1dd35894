// Package ops provides a fire-and-forget tracker for routine case lifecycle
// audit events. Events may be sampled per action, and a circuit breaker stops
// write attempts while the store is failing.
package ops

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "casework/pkg/platform/audit"
	"casework/pkg/platform/circuit"
)

const defaultCooldown = 30 * time.Second

// Tracker writes ops events synchronously but never reports failure.
type Tracker struct {
	store    audit.Store
	sampler  *Sampler
	breaker  *circuit.Breaker
	cooldown time.Duration
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time

	mu         sync.Mutex
	probeAfter time.Time
}

// Option configures the Tracker.
type Option func(*Tracker)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithSampler replaces the default keep-everything sampler.
func WithSampler(s *Sampler) Option {
	return func(t *Tracker) {
		if s != nil {
			t.sampler = s
		}
	}
}

// WithBreaker replaces the default breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(t *Tracker) {
		if b != nil {
			t.breaker = b
		}
	}
}

// WithCooldown sets how long an open breaker suppresses writes before the
// next event is let through as a probe.
func WithCooldown(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.cooldown = d
		}
	}
}

// WithClock overrides the wall clock; tests use it to step past the cooldown.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates an ops tracker.
func New(store audit.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		sampler:  NewSampler(1.0),
		breaker:  circuit.New("audit-ops", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(1)),
		cooldown: defaultCooldown,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track records an ops event. Sampled-out events and events arriving while
// the breaker is open are dropped and counted.
func (t *Tracker) Track(ctx context.Context, event audit.Event) {
	if !t.sampler.ShouldSample(event.Action) {
		if t.metrics != nil {
			t.metrics.IncSampled()
		}
		return
	}

	now := t.now()
	if t.suppressed(now) {
		if t.metrics != nil {
			t.metrics.IncCircuitBreakerDropped()
		}
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	event.Category = audit.CategoryOperations

	if err := t.store.Append(ctx, event); err != nil {
		useFallback, change := t.breaker.RecordFailure()
		if useFallback {
			t.mu.Lock()
			t.probeAfter = now.Add(t.cooldown)
			t.mu.Unlock()
		}
		if t.metrics != nil {
			t.metrics.IncPersistFailures()
			t.metrics.SetCircuitBreakerState(t.breaker.IsOpen())
		}
		if change.Opened {
			t.logger.ErrorContext(ctx, "ops audit circuit opened",
				"breaker", t.breaker.Name(),
				"error", err,
			)
		} else {
			t.logger.WarnContext(ctx, "ops audit persist failed",
				"action", event.Action,
				"resource_id", event.ResourceID,
				"error", err,
			)
		}
		return
	}

	_, change := t.breaker.RecordSuccess()
	if change.Closed {
		t.logger.InfoContext(ctx, "ops audit circuit closed", "breaker", t.breaker.Name())
	}
	if t.metrics != nil {
		t.metrics.IncTracked()
		t.metrics.SetCircuitBreakerState(t.breaker.IsOpen())
	}
}

func (t *Tracker) suppressed(now time.Time) bool {
	if !t.breaker.IsOpen() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return now.Before(t.probeAfter)
}
