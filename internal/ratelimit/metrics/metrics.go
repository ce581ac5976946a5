package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Decisions by endpoint class and outcome: "allowed", "denied", "error"
	Decisions *prometheus.CounterVec

	// Checks answered by the in-memory fallback
	DegradedChecks prometheus.Counter

	// 1 while the store circuit is open
	CircuitOpen prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimdesk_ratelimit_decisions_total",
			Help: "Rate limit decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}),
		DegradedChecks: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_ratelimit_degraded_checks_total",
			Help: "Rate limit checks served by the in-memory fallback",
		}),
		CircuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "claimdesk_ratelimit_circuit_open",
			Help: "Whether the rate limit store circuit is open",
		}),
	}
}

func (m *Metrics) IncrementDecision(class, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) IncrementDegraded() {
	if m == nil {
		return
	}
	m.DegradedChecks.Inc()
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}
