package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit sink.
type Metrics struct {
	SinkEvents   *prometheus.CounterVec
	SinkFailures *prometheus.CounterVec
}

// New creates and registers audit sink metrics.
func New() *Metrics {
	return &Metrics{
		SinkEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_audit_sink_events_total",
			Help: "Audit events handed to a category publisher",
		}, []string{"category"}),
		SinkFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_audit_sink_failures_total",
			Help: "Audit events the sink could not hand off; alert on any increase",
		}, []string{"category"}),
	}
}

func (m *Metrics) IncSinkEvent(category string) {
	m.SinkEvents.WithLabelValues(category).Inc()
}

func (m *Metrics) IncSinkFailure(category string) {
	m.SinkFailures.WithLabelValues(category).Inc()
}
