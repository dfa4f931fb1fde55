package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"quorum-hq/arbiter/pkg/config"
)

// Collector is the single entry point for recording metrics. Every
// recording method is a no-op when metrics are disabled, so callers
// never need to guard their calls.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	evaluation  *EvaluationMetrics
	circuit     *CircuitMetrics
	cache       *CacheMetrics
	compression *CompressionMetrics
}

// NewCollector creates a collector with its own registry. If registry
// is nil a fresh one is created.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "arbiter"
	}

	return &Collector{
		config:      cfg,
		registry:    registry,
		evaluation:  NewEvaluationMetrics(cfg, registry),
		circuit:     NewCircuitMetrics(cfg, registry),
		cache:       NewCacheMetrics(cfg, registry),
		compression: NewCompressionMetrics(cfg, registry),
	}
}

// RecordEvaluation records one completed rule evaluation.
// Outcome is "success", "error", or "timeout".
func (c *Collector) RecordEvaluation(ruleID, outcome string, duration time.Duration) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.evaluation.RecordEvaluation(ruleID, outcome, duration)
}

// RecordRetry records one retry attempt for a rule.
func (c *Collector) RecordRetry(ruleID string) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.evaluation.RecordRetry(ruleID)
}

// RecordCircuitTransition records a circuit breaker state change.
func (c *Collector) RecordCircuitTransition(ruleID, toState string) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.circuit.RecordTransition(ruleID, toState)
}

// RecordCircuitRejection records a call rejected by an open circuit.
func (c *Collector) RecordCircuitRejection(ruleID string) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.circuit.RecordRejection(ruleID)
}

// RecordCacheHit records a rule cache hit.
func (c *Collector) RecordCacheHit() {
	if c == nil || !c.config.Enabled {
		return
	}
	c.cache.RecordHit()
}

// RecordCacheMiss records a rule cache miss.
func (c *Collector) RecordCacheMiss() {
	if c == nil || !c.config.Enabled {
		return
	}
	c.cache.RecordMiss()
}

// UpdateCacheSize updates the rule cache entry count gauge.
func (c *Collector) UpdateCacheSize(size int) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.cache.UpdateSize(size)
}

// RecordCompression records one payload compression result.
func (c *Collector) RecordCompression(algorithm string, originalBytes, compressedBytes int) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.compression.RecordCompression(algorithm, originalBytes, compressedBytes)
}

// Registry returns the Prometheus registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
