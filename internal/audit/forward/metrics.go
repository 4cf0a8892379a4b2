package forward

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Published       prometheus.Counter
	PublishFailures prometheus.Counter
	BufferDepth     prometheus.Gauge
	Dropped         prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditd_forward_published_total",
			Help: "Total number of security events published to the broker",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditd_forward_publish_failures_total",
			Help: "Total number of failed publish batches; failed batches stay buffered",
		}),
		BufferDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "auditd_forward_buffer_depth",
			Help: "Current number of security events awaiting publication",
		}),
		Dropped: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "auditd_forward_dropped_total",
			Help: "Total number of security events dropped due to a full buffer",
		}),
	}
}

func (m *Metrics) AddPublished(count int) {
	m.Published.Add(float64(count))
}

func (m *Metrics) IncPublishFailures() {
	m.PublishFailures.Inc()
}

func (m *Metrics) SetBufferDepth(depth int) {
	m.BufferDepth.Set(float64(depth))
}

func (m *Metrics) SetDropped(count int64) {
	m.Dropped.Set(float64(count))
}
