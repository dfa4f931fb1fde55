package rules

import (
	"context"
	"time"

	"quorum-hq/arbiter/pkg/rules/compress"
)

// Metadata describes a rule independent of its compiled payload.
// It is produced by the source layer and copied into cache entries.
type Metadata struct {
	// ID is the unique, slash-segmented rule identifier
	// (e.g., "pricing/discounts/volume").
	ID string `json:"id"`

	// Version is an opaque, monotonically advancing version marker.
	// The remote catalog supplies it directly; the local source derives
	// it from file modification time unless a meta file overrides it.
	Version string `json:"version"`

	// Tags is the set of tags attached to the rule. Order is not
	// significant.
	Tags []string `json:"tags"`

	// LastModified is the time the rule definition last changed.
	LastModified time.Time `json:"lastModified"`

	// Enabled reports whether the rule participates in "all rules"
	// execution. Defaults to true when the source does not say otherwise.
	Enabled bool `json:"enabled"`
}

// HasAnyTag reports whether the rule carries at least one of the given
// tags (union/OR semantics).
func (m *Metadata) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range m.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Entry is a cached, compiled rule. Entries are immutable once inserted
// into the cache: updates replace the whole entry, never mutate it.
type Entry struct {
	// Metadata is the rule's descriptive metadata, promoted so callers
	// can read entry.ID, entry.Tags, and entry.Enabled directly.
	Metadata

	// Payload holds the compiled rule bytes. When Compression is not
	// compress.None the bytes are stored compressed and must be passed
	// through a codec before evaluation.
	Payload []byte

	// Compression is the algorithm the payload is stored with.
	Compression compress.Algorithm

	// OriginalSize is the size of the payload before compression.
	// Equal to len(Payload) when Compression is compress.None.
	OriginalSize int
}

// CompiledBytes returns the evaluable payload, decompressing through the
// codec when the entry is stored compressed. A nil codec is only valid
// for uncompressed entries.
func (e *Entry) CompiledBytes(codec *compress.Codec) ([]byte, error) {
	if e.Compression == compress.None {
		return e.Payload, nil
	}
	return codec.Decompress(e.Payload, e.Compression)
}

// Input is the caller-supplied record a rule is evaluated against.
type Input map[string]any

// Output is the record produced by a successful evaluation, plus the
// duration the evaluator reported for the run.
type Output struct {
	Record   map[string]any
	Duration time.Duration
}

// Evaluator is the external decision-graph evaluator boundary. The core
// treats compiled payloads as opaque; the evaluator owns the rule
// language semantics.
//
// Implementations must honor context cancellation: a cancelled context
// should abort the evaluation promptly.
type Evaluator interface {
	Evaluate(ctx context.Context, payload []byte, input Input) (*Output, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, payload []byte, input Input) (*Output, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, payload []byte, input Input) (*Output, error) {
	return f(ctx, payload, input)
}
