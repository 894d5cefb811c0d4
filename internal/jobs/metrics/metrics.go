package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for bulk job orchestration.
type Metrics struct {
	Submitted        prometheus.Counter
	Finished         *prometheus.CounterVec
	Running          prometheus.Gauge
	Items            *prometheus.CounterVec
	ItemDuration     prometheus.Histogram
	WebhookAttempts  *prometheus.CounterVec
	RecoveredOrphans prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gonogo_jobs_submitted_total",
			Help: "Bulk jobs accepted",
		}),
		Finished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gonogo_jobs_finished_total",
			Help: "Bulk jobs reaching a terminal status",
		}, []string{"status"}),
		Running: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gonogo_jobs_running",
			Help: "Bulk jobs currently executing in this process",
		}),
		Items: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gonogo_jobs_items_total",
			Help: "Job items reaching a terminal status, by status and error code",
		}, []string{"status", "code"}),
		ItemDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gonogo_jobs_item_duration_seconds",
			Help:    "Time spent evaluating one job item",
			Buckets: prometheus.DefBuckets,
		}),
		WebhookAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gonogo_jobs_webhook_attempts_total",
			Help: "Webhook delivery attempts by outcome (delivered, failed)",
		}, []string{"outcome"}),
		RecoveredOrphans: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gonogo_jobs_recovered_orphans_total",
			Help: "Jobs marked failed on startup because a previous process left them running",
		}),
	}
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.Submitted.Inc()
	m.Running.Inc()
}

func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.Running.Dec()
	m.Finished.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveItem(status, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.Items.WithLabelValues(status, code).Inc()
	m.ItemDuration.Observe(d.Seconds())
}

func (m *Metrics) WebhookAttempt(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.WebhookAttempts.WithLabelValues("failed").Inc()
		return
	}
	m.WebhookAttempts.WithLabelValues("delivered").Inc()
}

func (m *Metrics) Recovered(n int) {
	if m == nil {
		return
	}
	m.RecoveredOrphans.Add(float64(n))
	m.Finished.WithLabelValues("failed").Add(float64(n))
}
