package compress

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"

	"quorum-hq/arbiter/pkg/config"
)

// Algorithm identifies a payload compression algorithm.
type Algorithm string

const (
	// None stores the payload uncompressed.
	None Algorithm = "none"

	// Gzip compresses with the gzip format.
	Gzip Algorithm = "gzip"

	// Deflate compresses with raw DEFLATE.
	Deflate Algorithm = "deflate"
)

// Valid reports whether the algorithm is one the codec supports.
func (a Algorithm) Valid() bool {
	switch a {
	case None, Gzip, Deflate:
		return true
	}
	return false
}

// Config contains configuration for the Codec.
type Config struct {
	// Algorithm is the algorithm used for new payloads.
	// Default: Gzip
	Algorithm Algorithm

	// MinSize is the payload size in bytes at or below which compression
	// is skipped entirely. Default: 1024
	MinSize int

	// MinRatio is the maximum acceptable compressed/original size ratio.
	// A compression result above this ratio is discarded and the payload
	// is stored uncompressed. Default: 0.95
	MinRatio float64
}

// DefaultConfig returns the default codec configuration.
func DefaultConfig() Config {
	return Config{
		Algorithm: Gzip,
		MinSize:   1024,
		MinRatio:  0.95,
	}
}

// Result describes the outcome of a single compression operation.
type Result struct {
	// Algorithm is the algorithm the data was actually stored with.
	// None means compression was skipped or discarded.
	Algorithm Algorithm

	// Data is the stored payload bytes.
	Data []byte

	// OriginalSize is the input size in bytes.
	OriginalSize int

	// CompressedSize is len(Data).
	CompressedSize int
}

// Codec compresses and decompresses cached rule payloads.
// It is safe for concurrent use.
type Codec struct {
	config Config
	stats  statsCounters
}

// NewCodec creates a new codec with the given configuration.
// Zero-value fields fall back to defaults; an unknown algorithm is a
// construction error.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = Gzip
	}
	if !cfg.Algorithm.Valid() {
		return nil, &config.ConfigError{
			Section: "compression",
			Field:   "algorithm",
			Message: fmt.Sprintf("unsupported algorithm: %q", cfg.Algorithm),
		}
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = DefaultConfig().MinSize
	}
	if cfg.MinRatio <= 0 || cfg.MinRatio > 1 {
		cfg.MinRatio = DefaultConfig().MinRatio
	}
	return &Codec{config: cfg}, nil
}

// Compress compresses data with the configured algorithm.
//
// Payloads of MinSize bytes or fewer are returned unchanged with
// Algorithm None. If the compressed output does not shrink the payload below
// MinRatio of its original size, the result is discarded and the
// payload is reported as None as well.
func (c *Codec) Compress(data []byte) (*Result, error) {
	original := len(data)

	if c.config.Algorithm == None || original <= c.config.MinSize {
		res := &Result{
			Algorithm:      None,
			Data:           data,
			OriginalSize:   original,
			CompressedSize: original,
		}
		c.stats.record(res)
		return res, nil
	}

	compressed, err := encode(data, c.config.Algorithm)
	if err != nil {
		return nil, &Error{
			Algorithm: c.config.Algorithm,
			Operation: "compress",
			Message:   "encoding failed",
			Cause:     err,
		}
	}

	// Keep the compressed form only when it meaningfully shrinks the
	// payload.
	if original > 0 && float64(len(compressed))/float64(original) > c.config.MinRatio {
		res := &Result{
			Algorithm:      None,
			Data:           data,
			OriginalSize:   original,
			CompressedSize: original,
		}
		c.stats.record(res)
		return res, nil
	}

	res := &Result{
		Algorithm:      c.config.Algorithm,
		Data:           compressed,
		OriginalSize:   original,
		CompressedSize: len(compressed),
	}
	c.stats.record(res)
	return res, nil
}

// Decompress restores a payload compressed with the given algorithm.
// Decompressing None returns the input unchanged.
func (c *Codec) Decompress(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case None:
		return data, nil

	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, &Error{
				Algorithm: Gzip,
				Operation: "decompress",
				Message:   "corrupt gzip stream",
				Cause:     err,
			}
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, &Error{
				Algorithm: Gzip,
				Operation: "decompress",
				Message:   "corrupt gzip stream",
				Cause:     err,
			}
		}
		return out, nil

	case Deflate:
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, &Error{
				Algorithm: Deflate,
				Operation: "decompress",
				Message:   "corrupt deflate stream",
				Cause:     err,
			}
		}
		return out, nil

	default:
		return nil, &Error{
			Algorithm: algorithm,
			Operation: "decompress",
			Message:   "unknown algorithm",
		}
	}
}

// Algorithm returns the algorithm the codec compresses new payloads with.
func (c *Codec) Algorithm() Algorithm {
	return c.config.Algorithm
}

// encode compresses data with the given algorithm.
func encode(data []byte, algorithm Algorithm) ([]byte, error) {
	var buf bytes.Buffer

	switch algorithm {
	case Gzip:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

	case Deflate:
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported algorithm: %q", algorithm)
	}

	return buf.Bytes(), nil
}
