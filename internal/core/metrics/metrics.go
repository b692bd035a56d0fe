package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cashdesk"

// Metrics groups the collectors exported by the cash desk core.
type Metrics struct {
	Operations         *prometheus.CounterVec
	AuditEnqueued      *prometheus.CounterVec
	AuditDropped       *prometheus.CounterVec
	AuditFlushFailures *prometheus.CounterVec
	AuditLostLines     *prometheus.CounterVec
	AuditWrittenLines  *prometheus.CounterVec
	AuditQueueDepth    *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Cash operations by type and result.",
		}, []string{"operation", "result"}),
		AuditEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_enqueued_total",
			Help:      "Audit lines accepted into a queue.",
		}, []string{"stream"}),
		AuditDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_total",
			Help:      "Audit lines dropped because the queue was full or closed.",
		}, []string{"stream"}),
		AuditFlushFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_flush_failures_total",
			Help:      "Batch writes that failed.",
		}, []string{"stream"}),
		AuditLostLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_lost_lines_total",
			Help:      "Audit lines belonging to failed batch writes.",
		}, []string{"stream"}),
		AuditWrittenLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_written_lines_total",
			Help:      "Audit lines durably appended.",
		}, []string{"stream"}),
		AuditQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_queue_depth",
			Help:      "Audit lines waiting in a queue after the last flush.",
		}, []string{"stream"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Operations,
			m.AuditEnqueued,
			m.AuditDropped,
			m.AuditFlushFailures,
			m.AuditLostLines,
			m.AuditWrittenLines,
			m.AuditQueueDepth,
		)
	}
	return m
}
