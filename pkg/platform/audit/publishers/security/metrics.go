package security

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for security audit publishing.
type Metrics struct {
	Enqueued        prometheus.Counter
	Persisted       prometheus.Counter
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
	BufferDepth     prometheus.Gauge
}

// NewMetrics creates and registers security audit metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Enqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casework_audit_security_enqueued_total",
			Help: "Total number of security audit events accepted into the buffer",
		}),
		Persisted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casework_audit_security_persisted_total",
			Help: "Total number of security audit events written to the store",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casework_audit_security_dropped_total",
			Help: "Total number of security audit events dropped because the buffer was full",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casework_audit_security_persist_failures_total",
			Help: "Total number of security audit events the store rejected",
		}),
		BufferDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "casework_audit_security_buffer_depth",
			Help: "Security audit events waiting to be persisted",
		}),
	}
}

func (m *Metrics) IncEnqueued()        { m.Enqueued.Inc() }
func (m *Metrics) IncPersisted()       { m.Persisted.Inc() }
func (m *Metrics) IncDropped()         { m.Dropped.Inc() }
func (m *Metrics) IncPersistFailures() { m.PersistFailures.Inc() }
func (m *Metrics) SetBufferDepth(n int) {
	m.BufferDepth.Set(float64(n))
}
