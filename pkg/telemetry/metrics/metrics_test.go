package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"quorum-hq/arbiter/pkg/config"
)

func newTestCollector(t *testing.T, enabled bool) *Collector {
	t.Helper()
	return NewCollector(config.MetricsConfig{
		Enabled:   enabled,
		Namespace: "arbiter",
	}, prometheus.NewRegistry())
}

// gather returns the number of samples recorded for a metric name.
func gather(t *testing.T, c *Collector, name string) int {
	t.Helper()

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return len(mf.GetMetric())
		}
	}
	return 0
}

func TestCollector_RecordEvaluation(t *testing.T) {
	c := newTestCollector(t, true)

	c.RecordEvaluation("pricing/volume", "success", 5*time.Millisecond)
	c.RecordEvaluation("pricing/volume", "error", 2*time.Millisecond)
	c.RecordRetry("pricing/volume")

	if got := gather(t, c, "arbiter_evaluations_total"); got != 2 {
		t.Errorf("evaluations_total series = %d, want 2", got)
	}
	if got := gather(t, c, "arbiter_evaluation_retries_total"); got != 1 {
		t.Errorf("retries_total series = %d, want 1", got)
	}
}

func TestCollector_DisabledRecordsNothing(t *testing.T) {
	c := newTestCollector(t, false)

	c.RecordEvaluation("r1", "success", time.Millisecond)
	c.RecordCircuitTransition("r1", "open")
	c.RecordCacheHit()
	c.RecordCompression("gzip", 2048, 512)

	for _, name := range []string{
		"arbiter_evaluations_total",
		"arbiter_circuit_transitions_total",
		"arbiter_compression_operations_total",
	} {
		if got := gather(t, c, name); got != 0 {
			t.Errorf("%s series = %d, want 0 when disabled", name, got)
		}
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	// None of these may panic.
	c.RecordEvaluation("r1", "success", time.Millisecond)
	c.RecordRetry("r1")
	c.RecordCircuitTransition("r1", "open")
	c.RecordCircuitRejection("r1")
	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.UpdateCacheSize(3)
	c.RecordCompression("gzip", 100, 50)
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(t, true)
	c.RecordCircuitTransition("pricing/volume", "open")
	c.RecordCircuitRejection("pricing/volume")
	c.UpdateCacheSize(7)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	out := string(body)

	for _, want := range []string{
		"arbiter_circuit_transitions_total",
		"arbiter_circuit_rejections_total",
		"arbiter_cache_entries 7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition output missing %q", want)
		}
	}
}

func TestCollector_CompressionLabels(t *testing.T) {
	c := newTestCollector(t, true)

	c.RecordCompression("gzip", 2048, 512)
	c.RecordCompression("none", 100, 100)

	if got := gather(t, c, "arbiter_compression_operations_total"); got != 2 {
		t.Errorf("compression_operations_total series = %d, want 2", got)
	}
}
