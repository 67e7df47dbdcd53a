package trace

import (
	"github.com/seelabs/xrpl-probe/internal/probe"
	"github.com/seelabs/xrpl-probe/internal/safe"
	"github.com/seelabs/xrpl-probe/internal/storage"
)

// TERSuccess is the ters code of successful invocations. Band counters are
// stored as band.Start+i and negative counters as -i.
const TERSuccess int64 = 0

// Sampler turns cumulative snapshots into per-timeslice rows. It keeps the
// previous snapshot of every probe; the first sample of a probe is stored
// as is.
type Sampler struct {
	collectionID string
	band         probe.OutcomeBand
	last         map[int64]probe.LatencySnapshot
}

// NewSampler returns a sampler writing rows for collectionID.
func NewSampler(collectionID string, band probe.OutcomeBand) *Sampler {
	return &Sampler{
		collectionID: collectionID,
		band:         band,
		last:         make(map[int64]probe.LatencySnapshot),
	}
}

// Sample computes the delta of snap against the previous sample of p and
// returns the non-zero rows stamped with ts (unix seconds).
func (s *Sampler) Sample(p Probe, snap probe.LatencySnapshot, ts int64) ([]storage.Timing, []storage.Outcome) {
	prev, ok := s.last[p.ID]
	s.last[p.ID] = snap
	if !ok {
		prev = probe.LatencySnapshot{}
	}

	var timings []storage.Timing
	for bin, n := range delta(snap.Dist, prev.Dist) {
		if n == 0 {
			continue
		}
		timings = append(timings, storage.Timing{
			CollectionID: s.collectionID,
			ProbeID:      p.ID,
			Timestamp:    ts,
			LogBin:       int64(bin),
			Counts:       toInt64(n),
		})
	}

	if !p.Outcomes {
		return timings, nil
	}

	var outcomes []storage.Outcome
	add := func(ter int64, n uint64) {
		if n == 0 {
			return
		}
		outcomes = append(outcomes, storage.Outcome{
			CollectionID: s.collectionID,
			ProbeID:      p.ID,
			Timestamp:    ts,
			TER:          ter,
			Counts:       toInt64(n),
		})
	}

	result := delta(snap.Result, prev.Result)
	if len(result) > 0 {
		add(TERSuccess, result[0])
	}
	for i, n := range delta(snap.Band, prev.Band) {
		add(s.band.Start+int64(i), n)
	}
	for i, n := range delta(snap.Negative, prev.Negative) {
		add(-int64(i), n)
	}
	return timings, outcomes
}

// Forget drops the previous snapshot of a probe, so its next sample is
// stored in full.
func (s *Sampler) Forget(id int64) { delete(s.last, id) }

// delta returns cur-prev per bucket. A bucket that went backwards means the
// source was reset, and its current value is taken as the delta.
func delta(cur, prev []uint64) []uint64 {
	out := make([]uint64, len(cur))
	for i, c := range cur {
		var p uint64
		if i < len(prev) {
			p = prev[i]
		}
		if c >= p {
			out[i] = c - p
		} else {
			out[i] = c
		}
	}
	return out
}

func toInt64(n uint64) int64 {
	v, _ := safe.Uint64ToInt64(n)
	return v
}
