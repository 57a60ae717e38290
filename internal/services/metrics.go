package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OperationCreateFromTemplate      = "create_from_template"
	OperationCreateTemplateFromEvent = "create_template_from_event"
	OperationFetchDocument           = "fetch_document"
	OperationCountLinked             = "count_linked"
)

const (
	StatusSuccess  = "success"
	StatusInvalid  = "invalid"
	StatusNotFound = "not_found"
	StatusDenied   = "denied"
	StatusError    = "error"
)

// Metrics records template service activity.
type Metrics struct {
	// Operations counts service calls by operation and outcome.
	Operations *prometheus.CounterVec

	// Duration tracks service call latency in seconds.
	Duration *prometheus.HistogramVec

	// CopiedRecords counts linked records copied between events and templates.
	CopiedRecords *prometheus.CounterVec
}

// NewMetrics registers the service metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "event_templates_operations_total",
			Help: "Template service calls by operation and status",
		}, []string{"operation", "status"}),

		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "event_templates_operation_duration_seconds",
			Help:    "Template service call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		CopiedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "event_templates_copied_records_total",
			Help: "Linked records copied by doctype",
		}, []string{"doctype"}),
	}
}

func (m *Metrics) observe(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, status).Inc()
	m.Duration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) copied(doctype string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.CopiedRecords.WithLabelValues(doctype).Add(float64(n))
}
