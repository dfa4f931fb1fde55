package compress

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"quorum-hq/arbiter/pkg/config"
)

// compressiblePayload returns a payload of the given size that
// compresses well (repeated text).
func compressiblePayload(size int) []byte {
	pattern := []byte(`{"node":"decision","branch":"discount","threshold":100}`)
	out := make([]byte, 0, size)
	for len(out) < size {
		out = append(out, pattern...)
	}
	return out[:size]
}

func TestNewCodec_UnknownAlgorithm(t *testing.T) {
	_, err := NewCodec(Config{Algorithm: "lz4"})
	if err == nil {
		t.Fatal("NewCodec(lz4) error = nil, want error")
	}

	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("NewCodec(lz4) error type = %T, want *config.ConfigError", err)
	}
	if cfgErr.Field != "algorithm" {
		t.Errorf("cfgErr.Field = %q, want %q", cfgErr.Field, "algorithm")
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{None, Gzip, Deflate} {
		t.Run(string(alg), func(t *testing.T) {
			codec, err := NewCodec(Config{Algorithm: alg, MinSize: 1})
			if err != nil {
				t.Fatalf("NewCodec() error = %v", err)
			}

			payload := compressiblePayload(4096)
			res, err := codec.Compress(payload)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}

			restored, err := codec.Decompress(res.Data, res.Algorithm)
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}

			if !bytes.Equal(restored, payload) {
				t.Errorf("round-trip mismatch: got %d bytes, want %d bytes", len(restored), len(payload))
			}
		})
	}
}

func TestCodec_SmallPayloadNotCompressed(t *testing.T) {
	codec, err := NewCodec(Config{Algorithm: Gzip, MinSize: 1024})
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	// Payloads at the threshold skip compression too; only payloads
	// strictly above it are candidates.
	tests := []struct {
		name string
		size int
		want Algorithm
	}{
		{"below threshold", 512, None},
		{"at threshold", 1024, None},
		{"above threshold", 1025, Gzip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := compressiblePayload(tt.size)
			res, err := codec.Compress(payload)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}

			if res.Algorithm != tt.want {
				t.Errorf("res.Algorithm = %q, want %q", res.Algorithm, tt.want)
			}
			if tt.want == None {
				if res.CompressedSize != res.OriginalSize {
					t.Errorf("res.CompressedSize = %d, want %d", res.CompressedSize, res.OriginalSize)
				}
				if !bytes.Equal(res.Data, payload) {
					t.Error("skipped payload was modified")
				}
			}
		})
	}
}

func TestCodec_IneffectiveCompressionDiscarded(t *testing.T) {
	codec, err := NewCodec(Config{Algorithm: Gzip, MinSize: 1, MinRatio: 0.95})
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	// Random bytes are incompressible; gzip output will exceed the
	// ratio cutoff.
	payload := make([]byte, 4096)
	if _, err := rand.Read(payload); err != nil {
		t.Fatalf("rand.Read() error = %v", err)
	}

	res, err := codec.Compress(payload)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	if res.Algorithm != None {
		t.Errorf("res.Algorithm = %q, want %q", res.Algorithm, None)
	}
	if !bytes.Equal(res.Data, payload) {
		t.Error("discarded compression did not return the original payload")
	}
}

func TestCodec_EffectiveCompressionKept(t *testing.T) {
	codec, err := NewCodec(Config{Algorithm: Gzip, MinSize: 1})
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	payload := compressiblePayload(8192)
	res, err := codec.Compress(payload)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	if res.Algorithm != Gzip {
		t.Errorf("res.Algorithm = %q, want %q", res.Algorithm, Gzip)
	}
	if res.CompressedSize >= res.OriginalSize {
		t.Errorf("res.CompressedSize = %d, want < %d", res.CompressedSize, res.OriginalSize)
	}
}

func TestCodec_DecompressCorruptStream(t *testing.T) {
	codec, err := NewCodec(DefaultConfig())
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	_, err = codec.Decompress([]byte("definitely not gzip"), Gzip)
	if err == nil {
		t.Fatal("Decompress(corrupt) error = nil, want error")
	}

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Decompress(corrupt) error type = %T, want *Error", err)
	}
	if cerr.Operation != "decompress" {
		t.Errorf("cerr.Operation = %q, want %q", cerr.Operation, "decompress")
	}
}

func TestCodec_DecompressUnknownAlgorithm(t *testing.T) {
	codec, err := NewCodec(DefaultConfig())
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	_, err = codec.Decompress([]byte("data"), "snappy")
	if err == nil {
		t.Fatal("Decompress(unknown) error = nil, want error")
	}

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Decompress(unknown) error type = %T, want *Error", err)
	}
}

func TestCodec_DecompressNonePassesThrough(t *testing.T) {
	codec, err := NewCodec(DefaultConfig())
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	payload := []byte("plain payload")
	out, err := codec.Decompress(payload, None)
	if err != nil {
		t.Fatalf("Decompress(None) error = %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("Decompress(None) modified the payload")
	}
}

func TestCodec_Stats(t *testing.T) {
	codec, err := NewCodec(Config{Algorithm: Gzip, MinSize: 1024})
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	// One skipped (small), one compressed.
	if _, err := codec.Compress(compressiblePayload(100)); err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if _, err := codec.Compress(compressiblePayload(8192)); err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	stats := codec.Stats()
	if stats.Operations != 2 {
		t.Errorf("stats.Operations = %d, want 2", stats.Operations)
	}
	if stats.ByAlgorithm[None] != 1 {
		t.Errorf("stats.ByAlgorithm[None] = %d, want 1", stats.ByAlgorithm[None])
	}
	if stats.ByAlgorithm[Gzip] != 1 {
		t.Errorf("stats.ByAlgorithm[Gzip] = %d, want 1", stats.ByAlgorithm[Gzip])
	}
	if stats.TotalOriginalBytes != 100+8192 {
		t.Errorf("stats.TotalOriginalBytes = %d, want %d", stats.TotalOriginalBytes, 100+8192)
	}
	if stats.AverageRatio <= 0 || stats.AverageRatio >= 1 {
		t.Errorf("stats.AverageRatio = %f, want in (0, 1)", stats.AverageRatio)
	}

	codec.ResetStats()
	stats = codec.Stats()
	if stats.Operations != 0 {
		t.Errorf("after Reset, stats.Operations = %d, want 0", stats.Operations)
	}
}
