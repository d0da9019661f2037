package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for catalog loading and resolution.
type Metrics struct {
	// Loads by result: "resolved", "unchanged", "rejected", "fetch_failed"
	Loads *prometheus.CounterVec

	ResolveDuration prometheus.Histogram

	// Offerings in the currently published snapshot
	Offerings prometheus.Gauge

	// Resolution warnings by kind
	Warnings *prometheus.CounterVec
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the catalog metrics on reg. Tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Loads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unimatch_catalog_loads_total",
			Help: "Catalog snapshot loads by result",
		}, []string{"result"}),
		ResolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "unimatch_catalog_resolve_duration_seconds",
			Help:    "Duration of validating and resolving a catalog snapshot",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		Offerings: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unimatch_catalog_offerings",
			Help: "Resolved program offerings in the published catalog snapshot",
		}),
		Warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unimatch_catalog_resolution_warnings_total",
			Help: "Non-fatal catalog resolution warnings by kind",
		}, []string{"kind"}),
	}
}

// IncrementLoad records a load attempt outcome.
func (m *Metrics) IncrementLoad(result string) {
	if m != nil {
		m.Loads.WithLabelValues(result).Inc()
	}
}

// ObserveResolve records resolution duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveResolve(start time.Time) {
	if m != nil {
		m.ResolveDuration.Observe(time.Since(start).Seconds())
	}
}

// SetOfferings publishes the offering count of the current snapshot.
func (m *Metrics) SetOfferings(n int) {
	if m != nil {
		m.Offerings.Set(float64(n))
	}
}

// AddWarnings counts resolution warnings of one kind.
func (m *Metrics) AddWarnings(kind string, n int) {
	if m != nil && n > 0 {
		m.Warnings.WithLabelValues(kind).Add(float64(n))
	}
}
