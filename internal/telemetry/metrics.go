package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector is the metrics sink used by the authorization services.
// A Prometheus implementation is wired in production; tests use the no-op.
type MetricsCollector interface {
	RecordDecision(decision string, reasonCode string)
	RecordHoldTransition(to string)
	RecordSweep(processed, failed int)
	RecordError(operation, errType string)
	RecordUpstreamRetry(service string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordDecision(string, string)  {}
func (n *NoopMetricsCollector) RecordHoldTransition(string)    {}
func (n *NoopMetricsCollector) RecordSweep(int, int)           {}
func (n *NoopMetricsCollector) RecordError(string, string)     {}
func (n *NoopMetricsCollector) RecordUpstreamRetry(string)     {}

// PrometheusCollector implements MetricsCollector on top of promauto vectors.
type PrometheusCollector struct {
	decisions       *prometheus.CounterVec
	holdTransitions *prometheus.CounterVec
	sweepProcessed  prometheus.Counter
	sweepFailed     prometheus.Counter
	errors          *prometheus.CounterVec
	upstreamRetries *prometheus.CounterVec
}

// NewPrometheusCollector registers the authorization metrics with the default
// registry and returns the collector.
func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cardauth_decisions_total",
			Help: "Authorization decisions by outcome and reason code.",
		}, []string{"decision", "reason_code"}),
		holdTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cardauth_hold_transitions_total",
			Help: "Hold state transitions by target state.",
		}, []string{"to"}),
		sweepProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cardauth_sweep_processed_total",
			Help: "Expired holds processed by the sweeper.",
		}),
		sweepFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cardauth_sweep_failed_total",
			Help: "Expired holds the sweeper failed to process.",
		}),
		errors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cardauth_errors_total",
			Help: "Errors by operation and type.",
		}, []string{"operation", "type"}),
		upstreamRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cardauth_upstream_retries_total",
			Help: "Retries issued against upstream services.",
		}, []string{"service"}),
	}
}

func (p *PrometheusCollector) RecordDecision(decision, reasonCode string) {
	p.decisions.WithLabelValues(decision, reasonCode).Inc()
}

func (p *PrometheusCollector) RecordHoldTransition(to string) {
	p.holdTransitions.WithLabelValues(to).Inc()
}

func (p *PrometheusCollector) RecordSweep(processed, failed int) {
	p.sweepProcessed.Add(float64(processed))
	p.sweepFailed.Add(float64(failed))
}

func (p *PrometheusCollector) RecordError(operation, errType string) {
	p.errors.WithLabelValues(operation, errType).Inc()
}

func (p *PrometheusCollector) RecordUpstreamRetry(service string) {
	p.upstreamRetries.WithLabelValues(service).Inc()
}
