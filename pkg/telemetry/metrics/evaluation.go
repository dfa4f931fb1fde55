package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"quorum-hq/arbiter/pkg/config"
)

// EvaluationMetrics tracks rule evaluation outcomes and latencies.
//
// Metrics:
//   - arbiter_evaluations_total: Evaluations by rule and outcome
//   - arbiter_evaluation_duration_seconds: Evaluation latency
//   - arbiter_evaluation_retries_total: Retry attempts by rule
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	retriesTotal       *prometheus.CounterVec
}

// NewEvaluationMetrics creates and registers evaluation metrics.
func NewEvaluationMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of rule evaluations",
			},
			[]string{"rule_id", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of rule evaluations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 100µs to ~3s
			},
			[]string{"rule_id"},
		),

		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_retries_total",
				Help:      "Total number of evaluation retry attempts",
			},
			[]string{"rule_id"},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.retriesTotal,
	)

	return em
}

// RecordEvaluation records one evaluation with its outcome and latency.
func (em *EvaluationMetrics) RecordEvaluation(ruleID, outcome string, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(ruleID, outcome).Inc()
	em.evaluationDuration.WithLabelValues(ruleID).Observe(duration.Seconds())
}

// RecordRetry records one retry attempt for a rule.
func (em *EvaluationMetrics) RecordRetry(ruleID string) {
	em.retriesTotal.WithLabelValues(ruleID).Inc()
}
