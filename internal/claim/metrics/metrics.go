package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the claim workflow.
type Metrics struct {
	// Submission outcomes: "accepted", "validation", "not_found", "already_claimed",
	// "already_exists", "internal"
	Submissions *prometheus.CounterVec

	// Verification attempts by channel ("supervisor", "business") and outcome
	Verifications *prometheus.CounterVec

	// Claims promoted to approved
	Promotions prometheus.Counter

	// Provisioning scopes rolled back
	Compensations prometheus.Counter

	OperationLatency *prometheus.HistogramVec
}

// New registers the claim metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimdesk_claim_submissions_total",
			Help: "Claim submissions by outcome",
		}, []string{"outcome"}),

		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimdesk_claim_verifications_total",
			Help: "Verification attempts by channel and outcome",
		}, []string{"channel", "outcome"}),

		Promotions: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_claim_promotions_total",
			Help: "Claims promoted to approved",
		}),

		Compensations: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_claim_compensations_total",
			Help: "Claim submissions rolled back after a partial failure",
		}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claimdesk_claim_operation_duration_seconds",
			Help:    "Duration of claim operations",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementVerification(channel, outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(channel, outcome).Inc()
	}
}

func (m *Metrics) IncrementPromotion() {
	if m != nil {
		m.Promotions.Inc()
	}
}

func (m *Metrics) IncrementCompensation() {
	if m != nil {
		m.Compensations.Inc()
	}
}

// ObserveOperation records how long a claim operation took.
func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
