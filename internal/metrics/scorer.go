package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ScorerMetrics holds Prometheus metrics for sentiment scorer calls.
type ScorerMetrics struct {
	Calls        *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	BreakerState *prometheus.GaugeVec
}

// NewScorerMetrics creates and registers scorer metrics on the given registry.
func NewScorerMetrics(reg prometheus.Registerer) *ScorerMetrics {
	m := &ScorerMetrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scorer",
			Name:      "calls_total",
			Help:      "Total number of scorer calls, by scorer and result.",
		}, []string{"scorer", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scorer",
			Name:      "duration_seconds",
			Help:      "Scorer call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"scorer"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scorer",
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"scorer"}),
	}

	reg.MustRegister(m.Calls, m.Duration, m.BreakerState)
	return m
}

// ObserveCall records a scorer call. result is "ok" or an unavailability class.
func (m *ScorerMetrics) ObserveCall(scorer, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(scorer, result).Inc()
	m.Duration.WithLabelValues(scorer).Observe(d.Seconds())
}

// SetBreakerState publishes the breaker state for scorer.
func (m *ScorerMetrics) SetBreakerState(scorer string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(scorer).Set(state)
}
