package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for note access decisions.
type Metrics struct {
	Decisions *prometheus.CounterVec
}

// New creates a new Metrics instance with the policy metrics registered.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_policy_decisions_total",
			Help: "Total number of note visibility decisions by rule and outcome",
		}, []string{"rule_id", "allowed"}),
	}
}

// IncrementDecision records one decision.
func (m *Metrics) IncrementDecision(ruleID string, allowed bool) {
	m.Decisions.WithLabelValues(ruleID, strconv.FormatBool(allowed)).Inc()
}
