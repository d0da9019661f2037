package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for eligibility evaluations.
type Metrics struct {
	// Evaluations by status: "evaluated", "profile_incomplete", "invalid", "unavailable"
	Evaluations *prometheus.CounterVec

	EvaluateLatency prometheus.Histogram

	// Eligible offerings per evaluated request
	EligibleOfferings prometheus.Histogram
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the eligibility metrics on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unimatch_eligibility_evaluations_total",
			Help: "Eligibility evaluations by status",
		}, []string{"status"}),
		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "unimatch_eligibility_evaluate_duration_seconds",
			Help:    "Duration of a full eligibility evaluation including aggregation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		EligibleOfferings: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "unimatch_eligibility_eligible_offerings",
			Help:    "Number of eligible offerings per evaluated profile",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// IncrementEvaluation records one evaluation outcome.
func (m *Metrics) IncrementEvaluation(status string) {
	if m != nil {
		m.Evaluations.WithLabelValues(status).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveEligible(n int) {
	if m != nil {
		m.EligibleOfferings.Observe(float64(n))
	}
}
