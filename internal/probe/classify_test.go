package probe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog2Bucket(t *testing.T) {
	tests := []struct {
		name       string
		durationNs uint64
		want       int
		clamped    bool
	}{
		{name: "zero", durationNs: 0, want: 0},
		{name: "sub-microsecond", durationNs: 999, want: 0},
		{name: "one microsecond", durationNs: 1000, want: 0},
		{name: "two microseconds", durationNs: 2000, want: 1},
		{name: "truncates", durationNs: 3999, want: 1},
		{name: "2048us", durationNs: 2048000, want: 11},
		{name: "just under 4096us", durationNs: 4095999, want: 11},
		{name: "one second", durationNs: 1_000_000_000, want: 19},
		{name: "max", durationNs: math.MaxUint64, want: 54},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := Log2Bucket(tt.durationNs, LatencyBuckets)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.clamped, clamped)
		})
	}
}

func TestLog2Bucket_Clamps(t *testing.T) {
	got, clamped := Log2Bucket(1_000_000_000, 8)
	assert.Equal(t, 7, got)
	assert.True(t, clamped)
}

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name string
		code int64
		want Outcome
	}{
		{name: "success", code: 0, want: Outcome{Band: -1, Negative: -1, Result: 0}},
		{name: "positive outside band", code: 7, want: Outcome{Band: -1, Negative: -1, Result: 1}},
		{name: "band start", code: 100, want: Outcome{Band: 0, Negative: -1, Result: 1}},
		{name: "inside band", code: 120, want: Outcome{Band: 20, Negative: -1, Result: 1}},
		{name: "band end is exclusive", code: 150, want: Outcome{Band: -1, Negative: -1, Result: 1}},
		{name: "negative", code: -5, want: Outcome{Band: -1, Negative: 5, Result: 1}},
		{name: "negative clamps", code: -1000, want: Outcome{Band: -1, Negative: 399, Result: 1}},
		{name: "min int64", code: math.MinInt64, want: Outcome{Band: -1, Negative: 399, Result: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyOutcome(tt.code, DefaultOutcomeBand, NegativeBuckets)
			assert.Equal(t, tt.want, got)
		})
	}
}
