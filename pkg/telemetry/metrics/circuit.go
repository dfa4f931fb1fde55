package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"quorum-hq/arbiter/pkg/config"
)

// CircuitMetrics tracks circuit breaker state changes and rejections.
//
// Metrics:
//   - arbiter_circuit_transitions_total: State transitions by rule and target state
//   - arbiter_circuit_rejections_total: Calls rejected by an open circuit
type CircuitMetrics struct {
	transitionsTotal *prometheus.CounterVec
	rejectionsTotal  *prometheus.CounterVec
}

// NewCircuitMetrics creates and registers circuit breaker metrics.
func NewCircuitMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *CircuitMetrics {
	cm := &CircuitMetrics{
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "circuit_transitions_total",
				Help:      "Total number of circuit breaker state transitions",
			},
			[]string{"rule_id", "to_state"},
		),

		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "circuit_rejections_total",
				Help:      "Total number of calls rejected by an open circuit",
			},
			[]string{"rule_id"},
		),
	}

	registry.MustRegister(cm.transitionsTotal, cm.rejectionsTotal)

	return cm
}

// RecordTransition records a breaker entering toState for a rule.
func (cm *CircuitMetrics) RecordTransition(ruleID, toState string) {
	cm.transitionsTotal.WithLabelValues(ruleID, toState).Inc()
}

// RecordRejection records a fast-failed call for a rule.
func (cm *CircuitMetrics) RecordRejection(ruleID string) {
	cm.rejectionsTotal.WithLabelValues(ruleID).Inc()
}
