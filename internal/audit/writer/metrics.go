package writer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecordsEnqueued prometheus.Counter
	FlushedBatches  prometheus.Counter
	FlushedRecords  prometheus.Counter
	FlushFailures   prometheus.Counter
	QueueDepth      prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		RecordsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditd_writer_records_enqueued_total",
			Help: "Total number of audit records accepted by the writer",
		}),
		FlushedBatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditd_writer_flushed_batches_total",
			Help: "Total number of batches written to the audit store",
		}),
		FlushedRecords: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditd_writer_flushed_records_total",
			Help: "Total number of audit records written to the audit store",
		}),
		FlushFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditd_writer_flush_failures_total",
			Help: "Total number of failed batch flushes; failed batches are requeued",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "auditd_writer_queue_depth",
			Help: "Current number of audit records awaiting flush",
		}),
	}
}

func (m *Metrics) IncEnqueued() {
	m.RecordsEnqueued.Inc()
}

func (m *Metrics) IncFlushedBatches() {
	m.FlushedBatches.Inc()
}

func (m *Metrics) AddFlushedRecords(count int) {
	m.FlushedRecords.Add(float64(count))
}

func (m *Metrics) IncFlushFailures() {
	m.FlushFailures.Inc()
}

func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}
