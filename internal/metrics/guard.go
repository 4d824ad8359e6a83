package metrics

import "github.com/prometheus/client_golang/prometheus"

// GuardMetrics holds Prometheus metrics for trigger admission.
type GuardMetrics struct {
	Admissions *prometheus.CounterVec
	Rejections *prometheus.CounterVec
}

// NewGuardMetrics creates and registers trigger admission metrics on the given registry.
func NewGuardMetrics(reg prometheus.Registerer) *GuardMetrics {
	m := &GuardMetrics{
		Admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trigger",
			Name:      "admissions_total",
			Help:      "Total number of admitted triggers, by trigger type.",
		}, []string{"trigger"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trigger",
			Name:      "rejections_total",
			Help:      "Total number of rejected triggers, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.Admissions, m.Rejections)
	return m
}

// Admitted counts an admission.
func (m *GuardMetrics) Admitted(trigger string) {
	if m == nil {
		return
	}
	m.Admissions.WithLabelValues(trigger).Inc()
}

// Rejected counts a rejection.
func (m *GuardMetrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}
