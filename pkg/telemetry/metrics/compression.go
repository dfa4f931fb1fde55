package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"quorum-hq/arbiter/pkg/config"
)

// CompressionMetrics tracks payload compression outcomes.
//
// Metrics:
//   - arbiter_compression_operations_total: Compressions by algorithm
//   - arbiter_compression_original_bytes_total: Bytes before compression
//   - arbiter_compression_compressed_bytes_total: Bytes after compression
type CompressionMetrics struct {
	operationsTotal      *prometheus.CounterVec
	originalBytesTotal   *prometheus.CounterVec
	compressedBytesTotal *prometheus.CounterVec
}

// NewCompressionMetrics creates and registers compression metrics.
func NewCompressionMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *CompressionMetrics {
	cm := &CompressionMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compression_operations_total",
				Help:      "Total number of payload compressions",
			},
			[]string{"algorithm"},
		),

		originalBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compression_original_bytes_total",
				Help:      "Total payload bytes before compression",
			},
			[]string{"algorithm"},
		),

		compressedBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compression_compressed_bytes_total",
				Help:      "Total payload bytes after compression",
			},
			[]string{"algorithm"},
		),
	}

	registry.MustRegister(
		cm.operationsTotal,
		cm.originalBytesTotal,
		cm.compressedBytesTotal,
	)

	return cm
}

// RecordCompression records one compression result. The algorithm label
// reflects what was actually stored, so skipped payloads count under
// "none".
func (cm *CompressionMetrics) RecordCompression(algorithm string, originalBytes, compressedBytes int) {
	cm.operationsTotal.WithLabelValues(algorithm).Inc()
	cm.originalBytesTotal.WithLabelValues(algorithm).Add(float64(originalBytes))
	cm.compressedBytesTotal.WithLabelValues(algorithm).Add(float64(compressedBytes))
}
