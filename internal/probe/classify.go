package probe

import "math/bits"

// Histogram sizes used by the latency pipeline.
const (
	LatencyBuckets  = 64
	BandBuckets     = 51
	NegativeBuckets = 400
	ResultBuckets   = 2
)

// Log2Bucket converts a duration in nanoseconds to microseconds (truncating)
// and returns floor(log2(max(us, 1))), clamped to buckets-1. The second return
// value reports whether clamping happened.
func Log2Bucket(durationNs uint64, buckets int) (int, bool) {
	us := durationNs / 1000
	if us == 0 {
		us = 1
	}
	b := bits.Len64(us) - 1
	if b >= buckets {
		return buckets - 1, true
	}
	return b, false
}

// OutcomeBand is the half-open range [Start, End) of return codes counted
// in their own linear histogram.
type OutcomeBand struct {
	Start int64 `yaml:"start"`
	End   int64 `yaml:"end"`
}

// DefaultOutcomeBand covers the tec* transaction result codes.
var DefaultOutcomeBand = OutcomeBand{Start: 100, End: 150}

// Contains reports whether code lies within the band.
func (b OutcomeBand) Contains(code int64) bool {
	return code >= b.Start && code < b.End
}

// Outcome is the classification of a single return code. Each field is -1
// when the corresponding counter set is not touched.
type Outcome struct {
	Band     int
	Negative int
	Result   int
}

// ClassifyOutcome maps a return code to the counters it increments. Band and
// negative counting are exclusive of each other; the zero/non-zero result is
// always set. The negative index is clamped to negBuckets-1.
func ClassifyOutcome(code int64, band OutcomeBand, negBuckets int) Outcome {
	o := Outcome{Band: -1, Negative: -1, Result: 0}
	switch {
	case band.Contains(code):
		o.Band = int(code - band.Start)
	case code < 0:
		// -code overflows only for MinInt64, which clamps anyway.
		n := -code
		if n < 0 || n >= int64(negBuckets) {
			n = int64(negBuckets - 1)
		}
		o.Negative = int(n)
	}
	if code != 0 {
		o.Result = 1
	}
	return o
}
