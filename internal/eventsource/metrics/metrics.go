package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the event store and repositories.
// Labelled by aggregate type so case and note streams can be told apart.
type Metrics struct {
	EventsAppended       *prometheus.CounterVec
	ConcurrencyConflicts *prometheus.CounterVec
	CorruptStreams       *prometheus.CounterVec
	ObserverFailures     *prometheus.CounterVec
	LoadDuration         *prometheus.HistogramVec
	SaveDuration         *prometheus.HistogramVec
	ReplayedEvents       *prometheus.HistogramVec
}

// New creates a new Metrics instance with all event store metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_events_appended_total",
			Help: "Total number of events appended to the event store",
		}, []string{"aggregate_type"}),
		ConcurrencyConflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_event_concurrency_conflicts_total",
			Help: "Total number of appends rejected by optimistic concurrency",
		}, []string{"aggregate_type"}),
		CorruptStreams: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_event_corrupt_streams_total",
			Help: "Total number of loads aborted by a corrupt stream",
		}, []string{"aggregate_type"}),
		ObserverFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_event_observer_failures_total",
			Help: "Total number of post-commit observer failures",
		}, []string{"aggregate_type"}),
		LoadDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casework_aggregate_load_duration_seconds",
			Help:    "Duration of aggregate load and replay",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"aggregate_type"}),
		SaveDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casework_aggregate_save_duration_seconds",
			Help:    "Duration of aggregate save (append plus observers)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"aggregate_type"}),
		ReplayedEvents: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casework_aggregate_replayed_events",
			Help:    "Number of events replayed per aggregate load",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"aggregate_type"}),
	}
}

// IncrementAppended records events successfully appended.
func (m *Metrics) IncrementAppended(aggregateType string, n int) {
	m.EventsAppended.WithLabelValues(aggregateType).Add(float64(n))
}

// IncrementConflict records an append lost to a concurrent writer.
func (m *Metrics) IncrementConflict(aggregateType string) {
	m.ConcurrencyConflicts.WithLabelValues(aggregateType).Inc()
}

// IncrementCorrupt records a load aborted by a corrupt stream.
func (m *Metrics) IncrementCorrupt(aggregateType string) {
	m.CorruptStreams.WithLabelValues(aggregateType).Inc()
}

// IncrementObserverFailure records a failed post-commit observer.
func (m *Metrics) IncrementObserverFailure(aggregateType string) {
	m.ObserverFailures.WithLabelValues(aggregateType).Inc()
}

// ObserveLoad records load duration and replay length.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveLoad(aggregateType string, start time.Time, events int) {
	m.LoadDuration.WithLabelValues(aggregateType).Observe(time.Since(start).Seconds())
	m.ReplayedEvents.WithLabelValues(aggregateType).Observe(float64(events))
}

// ObserveSave records the duration of a save.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSave(aggregateType string, start time.Time) {
	m.SaveDuration.WithLabelValues(aggregateType).Observe(time.Since(start).Seconds())
}
