package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeTracked        = "tracked"
	outcomeSampledOut     = "sampled_out"
	outcomeBreakerDropped = "breaker_dropped"
	outcomePersistFailed  = "persist_failed"
)

// Metrics counts operational audit events by outcome.
type Metrics struct {
	events      *prometheus.CounterVec
	breakerOpen prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		events: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_audit_ops_events_total",
			Help: "Operational audit events by outcome",
		}, []string{"outcome"}),
		breakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "casework_audit_ops_breaker_open",
			Help: "1 while the ops audit breaker is open",
		}),
	}
}

func (m *Metrics) IncTracked()               { m.events.WithLabelValues(outcomeTracked).Inc() }
func (m *Metrics) IncSampled()               { m.events.WithLabelValues(outcomeSampledOut).Inc() }
func (m *Metrics) IncCircuitBreakerDropped() { m.events.WithLabelValues(outcomeBreakerDropped).Inc() }
func (m *Metrics) IncPersistFailures()       { m.events.WithLabelValues(outcomePersistFailed).Inc() }

func (m *Metrics) SetCircuitBreakerState(open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.breakerOpen.Set(v)
}
