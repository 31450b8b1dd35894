package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for case commands.
type Metrics struct {
	Commands      *prometheus.CounterVec
	CasesOpened   prometheus.Counter
	CasesClosed   prometheus.Counter
	NoOpStatusSet prometheus.Counter
}

// New creates a new Metrics instance with the case command metrics registered.
func New() *Metrics {
	return &Metrics{
		Commands: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_case_commands_total",
			Help: "Total number of case commands by command and outcome",
		}, []string{"command", "outcome"}),
		CasesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casework_cases_opened_total",
			Help: "Total number of cases opened",
		}),
		CasesClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casework_cases_closed_total",
			Help: "Total number of cases closed",
		}),
		NoOpStatusSet: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casework_case_status_noop_total",
			Help: "Status updates that matched the current status and emitted nothing",
		}),
	}
}

func (m *Metrics) IncrementCommand(command, outcome string) {
	m.Commands.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) IncrementOpened() {
	m.CasesOpened.Inc()
}

func (m *Metrics) IncrementClosed() {
	m.CasesClosed.Inc()
}

func (m *Metrics) IncrementNoOpStatus() {
	m.NoOpStatusSet.Inc()
}
