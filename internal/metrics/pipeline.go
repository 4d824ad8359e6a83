package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics holds Prometheus metrics for ingestion and batch runs.
type PipelineMetrics struct {
	Outcomes       *prometheus.CounterVec
	IngestDuration prometheus.Histogram
	BatchSize      prometheus.Histogram
	Retries        *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers pipeline metrics on the given registry.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_outcomes_total",
			Help:      "Total number of ingested items, by outcome kind.",
		}, []string{"kind"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a single item ingest in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_items",
			Help:      "Number of items handed to a batch run.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_envelopes_total",
			Help:      "Total number of retry envelopes, by action.",
		}, []string{"action"}),
	}

	reg.MustRegister(m.Outcomes, m.IngestDuration, m.BatchSize, m.Retries)
	return m
}

// ObserveIngest records one ingest outcome and its latency. Nil receivers are ignored.
func (m *PipelineMetrics) ObserveIngest(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(kind).Inc()
	m.IngestDuration.Observe(d.Seconds())
}

// ObserveBatch records the size of a batch run.
func (m *PipelineMetrics) ObserveBatch(items int) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(items))
}

// ObserveRetry counts a retry queue action (enqueued, requeued, dead_lettered, drained).
func (m *PipelineMetrics) ObserveRetry(action string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(action).Inc()
}
