package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the counters/histograms spec.md §9's observability
// surface calls for. Registered against a private registry so tests can
// build independent instances without colliding on the global one.
type Metrics struct {
	registry *prometheus.Registry

	StepExecutionsTotal   *prometheus.CounterVec
	StepExecutionDuration *prometheus.HistogramVec
	StepErrorsTotal       *prometheus.CounterVec
	QueueDepth            *prometheus.GaugeVec
	ActiveExecutions      *prometheus.GaugeVec
}

// NewMetrics builds and registers a fresh metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		StepExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beamline_step_executions_total",
			Help: "Total step executions by block type and terminal status.",
		}, []string{"block_type", "status"}),
		StepExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beamline_step_execution_duration_seconds",
			Help:    "Step execution latency in seconds, by block type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"block_type"}),
		StepErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beamline_step_errors_total",
			Help: "Total step errors by block type and error code.",
		}, []string{"block_type", "error_code"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "beamline_queue_depth",
			Help: "Current queued step count by resource class.",
		}, []string{"resource_class"}),
		ActiveExecutions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "beamline_active_executions",
			Help: "Currently executing steps by resource class.",
		}, []string{"resource_class"}),
	}

	registry.MustRegister(m.StepExecutionsTotal, m.StepExecutionDuration, m.StepErrorsTotal, m.QueueDepth, m.ActiveExecutions)

	return m
}

// Registry exposes the underlying registry for the /metrics HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveResult records one terminal StepResult's counters and duration.
func (m *Metrics) ObserveResult(blockType, status, errorCode string, latencySeconds float64) {
	m.StepExecutionsTotal.WithLabelValues(blockType, status).Inc()
	m.StepExecutionDuration.WithLabelValues(blockType).Observe(latencySeconds)

	if errorCode != "" {
		m.StepErrorsTotal.WithLabelValues(blockType, errorCode).Inc()
	}
}
