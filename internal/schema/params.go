package schema

import "math"

// MemoryParams is the immutable tier configuration of one history session.
// It is resolved from config at session construction and never mutated while
// promotion logic is running.
type MemoryParams struct {
	N0 int // max turns held in tier 0
	N1 int // max summaries held in tier 1
	K  int // upper bound on summaries merged into one mega-summary

	T0Cap int // token cap for a tier-0 turn before in-place compression
	T1Cap int // token cap for a tier-1 summary
	T2Cap int // token cap for a tier-2 mega-summary

	MaxKeywords      int // keyword set cap per mega-summary, FIFO eviction
	MaxMegaSummaries int // retained tier-2 entries, oldest evicted

	FlushEvery  int   // appended turns between automatic store flushes
	RotateBytes int64 // store file rotation threshold
}

// DefaultMemoryParams mirrors the tuning the bot ships with.
func DefaultMemoryParams() MemoryParams {
	return MemoryParams{
		N0:               10,
		N1:               20,
		K:                5,
		T0Cap:            120,
		T1Cap:            30,
		T2Cap:            150,
		MaxKeywords:      50,
		MaxMegaSummaries: 20,
		FlushEvery:       20,
		RotateBytes:      1_000_000,
	}
}

// MergeBatchSize returns how many tier-1 summaries one merge consumes:
// a quarter of N1, at least 1, never more than K.
func (p MemoryParams) MergeBatchSize() int {
	n := int(math.Round(0.25 * float64(p.N1)))
	if n < 1 {
		n = 1
	}
	if p.K > 0 && n > p.K {
		n = p.K
	}
	return n
}
