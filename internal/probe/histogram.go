package probe

import "sync/atomic"

// Histogram is a fixed array of counters indexed by bucket. Counters only
// ever grow; the only mutator is an atomic add.
type Histogram struct {
	counts []atomic.Uint64
}

// NewHistogram allocates a histogram with the given number of buckets.
func NewHistogram(buckets int) *Histogram {
	if buckets < 1 {
		buckets = 1
	}
	return &Histogram{counts: make([]atomic.Uint64, buckets)}
}

// Len returns the number of buckets.
func (h *Histogram) Len() int { return len(h.counts) }

// Increment adds one to bucket i. Indices past the end are clamped to the
// last bucket and reported by the return value; negative indices are
// dropped.
func (h *Histogram) Increment(i int) (clamped bool) {
	if i < 0 {
		return true
	}
	if i >= len(h.counts) {
		i = len(h.counts) - 1
		clamped = true
	}
	h.counts[i].Add(1)
	return clamped
}

// Count returns the current value of bucket i, or 0 when i is out of range.
func (h *Histogram) Count(i int) uint64 {
	if i < 0 || i >= len(h.counts) {
		return 0
	}
	return h.counts[i].Load()
}

// Snapshot copies the counters. Buckets are read one at a time, so the copy
// may interleave with concurrent increments.
func (h *Histogram) Snapshot() []uint64 {
	out := make([]uint64, len(h.counts))
	for i := range h.counts {
		out[i] = h.counts[i].Load()
	}
	return out
}

// Total sums all buckets.
func (h *Histogram) Total() uint64 {
	var total uint64
	for i := range h.counts {
		total += h.counts[i].Load()
	}
	return total
}
