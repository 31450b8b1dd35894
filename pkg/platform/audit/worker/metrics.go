package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the outbox relay.
type Metrics struct {
	Published       prometheus.Counter
	PublishFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casework_audit_outbox_published_total",
			Help: "Total number of audit outbox rows published to Kafka",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casework_audit_outbox_publish_failures_total",
			Help: "Total number of failed outbox publish passes",
		}),
	}
}

func (m *Metrics) AddPublished(n int)  { m.Published.Add(float64(n)) }
func (m *Metrics) IncPublishFailures() { m.PublishFailures.Inc() }
