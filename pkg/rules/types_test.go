package rules

import (
	"errors"
	"testing"

	"quorum-hq/arbiter/pkg/rules/compress"
)

func TestMetadata_HasAnyTag(t *testing.T) {
	m := &Metadata{ID: "r1", Tags: []string{"pricing", "beta"}}

	tests := []struct {
		name string
		tags []string
		want bool
	}{
		{"single match", []string{"pricing"}, true},
		{"union match", []string{"audit", "beta"}, true},
		{"no match", []string{"audit", "ops"}, false},
		{"empty query", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.HasAnyTag(tt.tags); got != tt.want {
				t.Errorf("HasAnyTag(%v) = %v, want %v", tt.tags, got, tt.want)
			}
		})
	}
}

func TestEntry_CompiledBytes(t *testing.T) {
	codec, err := compress.NewCodec(compress.Config{Algorithm: compress.Gzip, MinSize: 1})
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	original := []byte(`{"node":"root","children":["a","b","c","a","b","c","a","b","c"]}`)
	res, err := codec.Compress(original)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	entry := &Entry{
		Metadata:    Metadata{ID: "r1", Enabled: true},
		Payload:     res.Data,
		Compression: res.Algorithm,
	}

	got, err := entry.CompiledBytes(codec)
	if err != nil {
		t.Fatalf("CompiledBytes() error = %v", err)
	}
	if string(got) != string(original) {
		t.Error("CompiledBytes() does not round-trip the payload")
	}

	// Uncompressed entries need no codec.
	plain := &Entry{Payload: []byte("raw"), Compression: compress.None}
	got, err = plain.CompiledBytes(nil)
	if err != nil {
		t.Fatalf("CompiledBytes(nil codec) error = %v", err)
	}
	if string(got) != "raw" {
		t.Errorf("CompiledBytes() = %q, want %q", got, "raw")
	}
}

func TestEvaluationError_Unwrap(t *testing.T) {
	cause := errors.New("engine fault")
	err := &EvaluationError{RuleID: "r1", Message: "evaluation failed", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	var evalErr *EvaluationError
	if !errors.As(error(err), &evalErr) {
		t.Fatal("errors.As failed")
	}
	if evalErr.RuleID != "r1" {
		t.Errorf("RuleID = %q, want %q", evalErr.RuleID, "r1")
	}
}
