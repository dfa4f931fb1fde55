package compress

import "sync"

// Stats is a snapshot of the codec's running aggregate statistics.
type Stats struct {
	// Operations is the total number of Compress calls.
	Operations int64

	// TotalOriginalBytes is the sum of input sizes.
	TotalOriginalBytes int64

	// TotalCompressedBytes is the sum of stored sizes.
	TotalCompressedBytes int64

	// AverageRatio is TotalCompressedBytes / TotalOriginalBytes.
	// Zero when no bytes have been processed.
	AverageRatio float64

	// ByAlgorithm counts operations by the algorithm actually used,
	// including None for skipped or discarded compressions.
	ByAlgorithm map[Algorithm]int64
}

// statsCounters holds the mutable counters behind Stats.
type statsCounters struct {
	mu          sync.Mutex
	operations  int64
	original    int64
	compressed  int64
	byAlgorithm map[Algorithm]int64
}

func (s *statsCounters) record(res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byAlgorithm == nil {
		s.byAlgorithm = make(map[Algorithm]int64)
	}

	s.operations++
	s.original += int64(res.OriginalSize)
	s.compressed += int64(res.CompressedSize)
	s.byAlgorithm[res.Algorithm]++
}

// Stats returns a snapshot of the codec's aggregate statistics.
func (c *Codec) Stats() Stats {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()

	out := Stats{
		Operations:           c.stats.operations,
		TotalOriginalBytes:   c.stats.original,
		TotalCompressedBytes: c.stats.compressed,
		ByAlgorithm:          make(map[Algorithm]int64, len(c.stats.byAlgorithm)),
	}
	for alg, n := range c.stats.byAlgorithm {
		out.ByAlgorithm[alg] = n
	}
	if out.TotalOriginalBytes > 0 {
		out.AverageRatio = float64(out.TotalCompressedBytes) / float64(out.TotalOriginalBytes)
	}
	return out
}

// ResetStats clears the codec's aggregate statistics.
func (c *Codec) ResetStats() {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()

	c.stats.operations = 0
	c.stats.original = 0
	c.stats.compressed = 0
	c.stats.byAlgorithm = make(map[Algorithm]int64)
}
