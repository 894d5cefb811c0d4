package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision module.
type Metrics struct {
	// Provider lookup latencies by source and outcome
	EvidenceLatency *prometheus.HistogramVec

	// Evaluation outcomes: eligible, ineligible, degraded, storage_error
	DecisionOutcome *prometheus.CounterVec

	// Overall evaluation latency including the audit write
	EvaluateLatency prometheus.Histogram
}

// New creates a new Metrics instance with all decision module metrics registered.
func New() *Metrics {
	return &Metrics{
		EvidenceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gonogo_decision_evidence_duration_seconds",
			Help:    "Duration of provider lookups by source and outcome",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source", "outcome"}),

		DecisionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gonogo_decision_outcomes_total",
			Help: "Total evaluations by outcome",
		}, []string{"outcome"}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gonogo_decision_evaluate_duration_seconds",
			Help:    "Duration of full evaluation including evidence gathering and audit write",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// ObserveEvidenceLatency records the duration of one provider lookup.
func (m *Metrics) ObserveEvidenceLatency(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EvidenceLatency.WithLabelValues(source, outcome).Observe(d.Seconds())
}

// IncrementOutcome records an evaluation outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
