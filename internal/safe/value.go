// Package safe holds overflow-checked integer conversions used when kernel
// counters are written to SQL columns.
package safe

import (
	"math"
)

// Uint64ToInt64 converts val to int64, clamping to math.MaxInt64.
// The boolean reports whether clamping occurred.
func Uint64ToInt64(val uint64) (int64, bool) {
	if val > math.MaxInt64 {
		return math.MaxInt64, true
	}
	return int64(val), false
}

// Int64ToUint64 converts val to uint64, clamping negatives to zero.
func Int64ToUint64(val int64) (uint64, bool) {
	if val < 0 {
		return 0, true
	}
	return uint64(val), false
}

// IntToUint32 converts val to uint32, clamping to [0, math.MaxUint32].
func IntToUint32(val int) (uint32, bool) {
	switch {
	case val < 0:
		return 0, true
	case uint64(val) > math.MaxUint32:
		return math.MaxUint32, true
	}
	return uint32(val), false
}
