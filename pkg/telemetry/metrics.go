package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for bringup.
type Metrics struct {
	config MetricsConfig

	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec

	retryAttempts     *prometheus.CounterVec
	contentionSeconds prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// A disabled config yields a no-op instance whose record methods are safe
// to call.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of provisioning runs started",
		}),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of provisioning runs completed",
			},
			[]string{"status"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Duration of each provisioning phase",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		retryAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Total failed attempts that were retried, per operation",
			},
			[]string{"operation"},
		),
		contentionSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contention_wait_seconds_total",
			Help:      "Total time spent waiting for external package-manager locks",
		}),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.phaseDuration,
		m.retryAttempts,
		m.contentionSeconds,
	)

	return m, nil
}

// RecordRunStarted increments the started-runs counter.
func (m *Metrics) RecordRunStarted() {
	if m.runsStarted != nil {
		m.runsStarted.Inc()
	}
}

// RecordRunCompleted increments the completed-runs counter for a status.
func (m *Metrics) RecordRunCompleted(status string) {
	if m.runsCompleted != nil {
		m.runsCompleted.WithLabelValues(status).Inc()
	}
}

// RecordPhaseDuration observes how long a phase took.
func (m *Metrics) RecordPhaseDuration(phase string, d time.Duration) {
	if m.phaseDuration != nil {
		m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	}
}

// RecordRetry counts a failed attempt that will be retried.
func (m *Metrics) RecordRetry(operation string) {
	if m.retryAttempts != nil {
		m.retryAttempts.WithLabelValues(operation).Inc()
	}
}

// RecordContentionWait accumulates time spent waiting for external locks.
func (m *Metrics) RecordContentionWait(d time.Duration) {
	if m.contentionSeconds != nil {
		m.contentionSeconds.Add(d.Seconds())
	}
}

// Handler returns an HTTP handler serving the metrics registry, or nil when
// metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
