package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics implements ports.PipelineObserver.
type PipelineMetrics struct {
	service  string
	registry *prometheus.Registry

	claimsSubmitted prometheus.Counter
	claimsApproved  prometheus.Counter
	stageTotal      *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	payout          prometheus.Histogram
	retries         *prometheus.CounterVec
}

// NewPipelineMetrics registers on registry, or on a fresh one when nil.
func NewPipelineMetrics(service string, registry *prometheus.Registry) *PipelineMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	labels := prometheus.Labels{"service": service}

	m := &PipelineMetrics{
		service:  service,
		registry: registry,
		claimsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "claims_submitted_total",
			Help:        "Claims accepted at intake.",
			ConstLabels: labels,
		}),
		claimsApproved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "claims_approved_total",
			Help:        "Claims that reached the terminal state.",
			ConstLabels: labels,
		}),
		stageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "stage_executions_total",
			Help:        "Stage executions by stage and status.",
			ConstLabels: labels,
		}, []string{"stage", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "stage_duration_seconds",
			Help:        "Report synthesis duration per stage.",
			Buckets:     []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			ConstLabels: labels,
		}, []string{"stage"}),
		payout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "payout_dollars",
			Help:        "Net payout of approved claims.",
			Buckets:     []float64{0, 5000, 10000, 25000, 50000, 75000, 100000, 120000},
			ConstLabels: labels,
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "resilience",
			Name:        "retries_total",
			Help:        "Retry attempts of infrastructure operations.",
			ConstLabels: labels,
		}, []string{"operation"}),
	}

	registry.MustRegister(m.claimsSubmitted, m.claimsApproved, m.stageTotal, m.stageDuration, m.payout, m.retries)
	return m
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) ClaimSubmitted() {
	m.claimsSubmitted.Inc()
}

func (m *PipelineMetrics) StageExecuted(stage string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.stageTotal.WithLabelValues(stage, status).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ClaimApproved(payout int64) {
	m.claimsApproved.Inc()
	m.payout.Observe(float64(payout))
}

// RecordRetry is installed as the resilience executor's retry hook.
func (m *PipelineMetrics) RecordRetry(operation string) {
	m.retries.WithLabelValues(operation).Inc()
}
