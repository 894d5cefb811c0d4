package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit persistence and streaming.
type Metrics struct {
	Records         *prometheus.CounterVec
	PersistDuration prometheus.Histogram
	StreamPublished prometheus.Counter
	StreamFailures  prometheus.Counter
	StreamDropped   prometheus.Counter
	StreamBacklog   prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Records: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gonogo_audit_records_total",
			Help: "Audit record writes by outcome (written, failed)",
		}, []string{"outcome"}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gonogo_audit_persist_duration_seconds",
			Help:    "Time spent durably writing one audit record",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		StreamPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gonogo_audit_stream_published_total",
			Help: "Audit records forwarded to the stream",
		}),
		StreamFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gonogo_audit_stream_failures_total",
			Help: "Failed stream publish attempts",
		}),
		StreamDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gonogo_audit_stream_dropped_total",
			Help: "Audit records dropped from the stream buffer; the durable copy is unaffected",
		}),
		StreamBacklog: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gonogo_audit_stream_backlog",
			Help: "Audit records waiting to be forwarded to the stream",
		}),
	}
}

func (m *Metrics) ObservePersist(d time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Records.WithLabelValues("failed").Inc()
		return
	}
	m.Records.WithLabelValues("written").Inc()
	m.PersistDuration.Observe(d.Seconds())
}

func (m *Metrics) AddStreamPublished(n int) {
	if m == nil {
		return
	}
	m.StreamPublished.Add(float64(n))
}

func (m *Metrics) IncStreamFailures() {
	if m == nil {
		return
	}
	m.StreamFailures.Inc()
}

func (m *Metrics) AddStreamDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.StreamDropped.Add(float64(n))
}

func (m *Metrics) SetStreamBacklog(n int) {
	if m == nil {
		return
	}
	m.StreamBacklog.Set(float64(n))
}
