// Package compliance writes the events the agency must be able to produce on
// demand: case lifecycle changes, seals and allowed reads of restricted
// notes. Emit blocks until the outbox row is written. The caller decides
// whether a failure aborts its operation.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dErrors "casework/pkg/domain-errors"
	audit "casework/pkg/platform/audit"
)

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New wraps store, which should be the outbox in production.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit validates and persists one compliance event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if err := validate(event); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Severity == "" {
		event.Severity = audit.SeverityInfo
	}
	event.Category = audit.CategoryCompliance

	start := time.Now()
	if err := p.store.Append(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.IncPersistFailures()
		}
		p.logger.ErrorContext(ctx, "compliance audit write failed",
			"action", event.Action,
			"actor_id", event.ActorID.String(),
			"resource_type", event.ResourceType,
			"resource_id", event.ResourceID,
			"request_id", event.RequestID,
			"error", err,
		)
		return fmt.Errorf("persist compliance event %s: %w", event.Action, err)
	}
	if p.metrics != nil {
		p.metrics.ObservePersistDuration(time.Since(start).Seconds())
		p.metrics.IncEventsEmitted()
	}
	return nil
}

// An event nobody can attribute or locate is useless as evidence.
func validate(e audit.Event) error {
	var errs []error
	if e.ActorID.IsNil() {
		errs = append(errs, errors.New("actor_id is required"))
	}
	if e.Action == "" {
		errs = append(errs, errors.New("action is required"))
	}
	if e.ResourceType == "" || e.ResourceID == "" {
		errs = append(errs, errors.New("resource is required"))
	}
	if len(errs) == 0 {
		return nil
	}
	return dErrors.Wrap(errors.Join(errs...), dErrors.CodeInvalidInput, "incomplete compliance event")
}
