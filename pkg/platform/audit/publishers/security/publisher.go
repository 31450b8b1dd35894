// Package security provides a non-blocking audit publisher for security events.
//
// Emit enqueues into a bounded ring buffer and returns immediately. A
// background goroutine drains the buffer in batches into the store. When the
// store falls behind, the oldest buffered events are dropped and counted.
//
// Use for: denied access, decisions on notes that need special handling.
package security

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "casework/pkg/platform/audit"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 50 * time.Millisecond
)

// Publisher buffers security events and persists them asynchronously.
type Publisher struct {
	store         audit.Store
	buffer        *RingBuffer
	logger        *slog.Logger
	metrics       *Metrics
	batchSize     int
	flushInterval time.Duration
	now           func() time.Time

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBufferSize sets the ring buffer capacity.
func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(n)
	}
}

// WithBatchSize sets how many events one drain pass writes at most.
func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushInterval sets how often the drain loop polls the buffer.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// New creates a security publisher and starts its drain goroutine.
// Close must be called to flush and stop it.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:         store,
		buffer:        NewRingBuffer(0),
		logger:        slog.Default(),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		now:           time.Now,
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

// Emit enqueues a security event. It never blocks on the store.
func (p *Publisher) Emit(_ context.Context, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Severity == "" {
		event.Severity = audit.SeverityWarning
	}
	event.Category = audit.CategorySecurity

	evicted := p.buffer.Enqueue(event)
	if p.metrics != nil {
		p.metrics.IncEnqueued()
		if evicted {
			p.metrics.IncDropped()
		}
		p.metrics.SetBufferDepth(p.buffer.Len())
	}

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Close stops the drain goroutine after flushing every buffered event.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		<-p.stopped
	})
	return nil
}

// Pending returns the number of buffered events not yet persisted.
func (p *Publisher) Pending() int {
	return p.buffer.Len()
}

// Dropped returns the number of events lost to buffer overflow.
func (p *Publisher) Dropped() int64 {
	return p.buffer.Dropped()
}

func (p *Publisher) run() {
	defer close(p.stopped)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			for p.flush() > 0 {
			}
			return
		case <-p.wake:
			p.flush()
		case <-ticker.C:
			p.flush()
		}
	}
}

// flush writes one batch and returns how many events it dequeued.
func (p *Publisher) flush() int {
	batch := p.buffer.DequeueBatch(p.batchSize)
	ctx := context.Background()
	for _, event := range batch {
		if err := p.store.Append(ctx, event); err != nil {
			if p.metrics != nil {
				p.metrics.IncPersistFailures()
			}
			p.logger.ErrorContext(ctx, "security audit persist failed",
				"action", event.Action,
				"resource_id", event.ResourceID,
				"request_id", event.RequestID,
				"error", err,
			)
			continue
		}
		if p.metrics != nil {
			p.metrics.IncPersisted()
		}
	}
	if p.metrics != nil && len(batch) > 0 {
		p.metrics.SetBufferDepth(p.buffer.Len())
	}
	return len(batch)
}
