// Package report summarizes a stored collection.
package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/seelabs/xrpl-probe/internal/probe"
	"github.com/seelabs/xrpl-probe/internal/safe"
	"github.com/seelabs/xrpl-probe/internal/storage"
)

// Outcome histogram range, inclusive.
const (
	MinTER = -99
	MaxTER = 150
)

// SliceStats summarizes one timeslice of one probe. Mean, Median, Min and
// Max are log2 of microseconds, computed from bucket right bounds 2^bin.
type SliceStats struct {
	Timestamp int64   `json:"timestamp" header:"TIMESTAMP"`
	ProbeID   int64   `json:"probe_id" header:"PROBE"`
	Count     int64   `json:"count" header:"COUNT"`
	Mean      float64 `json:"mean" header:"MEAN"`
	Median    float64 `json:"median" header:"MEDIAN"`
	Min       float64 `json:"min" header:"MIN"`
	Max       float64 `json:"max" header:"MAX"`
	// Histogram holds the slice's counts by log2 microsecond bucket.
	Histogram []int64 `json:"histogram"`
}

// ProbeSummary aggregates every timeslice of a probe.
type ProbeSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
	// Histogram is indexed by log2 microsecond bucket.
	Histogram []int64 `json:"histogram"`
	// Outcomes is indexed by ter-MinTER.
	Outcomes []int64 `json:"outcomes"`
	// OtherOutcomes counts ters outside [MinTER, MaxTER].
	OtherOutcomes int64        `json:"other_outcomes"`
	Slices        []SliceStats `json:"slices"`
}

// TxSummary aggregates the transactions table.
type TxSummary struct {
	Count     int           `json:"count"`
	ByType    map[int64]int `json:"by_type"`
	ByTER     map[int64]int `json:"by_ter"`
	Histogram []int64       `json:"histogram"`
}

// Summary is the report of one collection.
type Summary struct {
	Collection   storage.Collection `json:"collection"`
	Tags         []string           `json:"tags"`
	Probes       []ProbeSummary     `json:"probes"`
	Transactions TxSummary          `json:"transactions"`
}

// Slices flattens the per-probe timeslice statistics ordered by time.
func (s *Summary) Slices() []SliceStats {
	var out []SliceStats
	for _, p := range s.Probes {
		out = append(out, p.Slices...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ProbeID < out[j].ProbeID
	})
	return out
}

// Load reads a collection and summarizes it. An empty id selects the most
// recent collection.
func Load(ctx context.Context, store *storage.Store, collectionID string) (*Summary, error) {
	var (
		coll *storage.Collection
		err  error
	)
	if collectionID == "" {
		coll, err = store.LatestCollection(ctx)
	} else {
		coll, err = store.Collection(ctx, collectionID)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("collection %q: %w", collectionID, err)
		}
		return nil, err
	}

	probes, err := store.Probes(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := store.Tags(ctx, coll.ID)
	if err != nil {
		return nil, err
	}
	timings, err := store.Timings(ctx, coll.ID)
	if err != nil {
		return nil, err
	}
	outcomes, err := store.Outcomes(ctx, coll.ID)
	if err != nil {
		return nil, err
	}
	txs, err := store.Transactions(ctx, coll.ID)
	if err != nil {
		return nil, err
	}

	s := Summarize(probes, timings, outcomes, txs)
	s.Collection = *coll
	s.Tags = tags
	return s, nil
}

// Summarize builds the summary of the given rows. Probes with neither
// timings nor outcomes are left out.
func Summarize(probes []storage.Probe, timings []storage.Timing, outcomes []storage.Outcome, txs []storage.Transaction) *Summary {
	byID := make(map[int64]*ProbeSummary)
	get := func(id int64) *ProbeSummary {
		p, ok := byID[id]
		if !ok {
			p = &ProbeSummary{
				ID:        id,
				Name:      fmt.Sprintf("probe-%d", id),
				Histogram: make([]int64, probe.LatencyBuckets),
				Outcomes:  make([]int64, MaxTER-MinTER+1),
			}
			byID[id] = p
		}
		return p
	}

	type sliceKey struct{ ts, probe int64 }
	slices := make(map[sliceKey][]storage.Timing)
	for _, t := range timings {
		p := get(t.ProbeID)
		if t.LogBin >= 0 && t.LogBin < int64(len(p.Histogram)) {
			p.Histogram[t.LogBin] += t.Counts
		}
		p.Count += t.Counts
		k := sliceKey{t.Timestamp, t.ProbeID}
		slices[k] = append(slices[k], t)
	}
	for k, rows := range slices {
		if st, ok := sliceStats(k.ts, k.probe, rows); ok {
			p := get(k.probe)
			p.Slices = append(p.Slices, st)
		}
	}

	for _, o := range outcomes {
		p := get(o.ProbeID)
		if o.TER < MinTER || o.TER > MaxTER {
			p.OtherOutcomes += o.Counts
			continue
		}
		p.Outcomes[o.TER-MinTER] += o.Counts
	}

	names := make(map[int64]string, len(probes))
	for _, p := range probes {
		names[p.ID] = p.Description
	}

	s := &Summary{Transactions: summarizeTransactions(txs)}
	for _, p := range byID {
		if name, ok := names[p.ID]; ok {
			p.Name = name
		}
		sort.Slice(p.Slices, func(i, j int) bool { return p.Slices[i].Timestamp < p.Slices[j].Timestamp })
		s.Probes = append(s.Probes, *p)
	}
	sort.Slice(s.Probes, func(i, j int) bool { return s.Probes[i].ID < s.Probes[j].ID })
	return s
}

// sliceStats computes the statistics of one (timestamp, probe) group, whose
// rows need not be sorted.
func sliceStats(ts, probeID int64, rows []storage.Timing) (SliceStats, bool) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].LogBin < rows[j].LogBin })

	var count int64
	var total float64
	for _, r := range rows {
		count += r.Counts
		total += float64(r.Counts) * rightBound(r.LogBin)
	}
	if count == 0 {
		return SliceStats{}, false
	}

	st := SliceStats{
		Timestamp: ts,
		ProbeID:   probeID,
		Count:     count,
		Mean:      math.Log2(total / float64(count)),
		Median:    -1,
		Min:       -1,
		Histogram: make([]int64, probe.LatencyBuckets),
	}
	half := float64(count) / 2
	var cum int64
	for _, r := range rows {
		if r.Counts == 0 {
			continue
		}
		cum += r.Counts
		if r.LogBin >= 0 && r.LogBin < int64(len(st.Histogram)) {
			st.Histogram[r.LogBin] += r.Counts
		}
		b := float64(r.LogBin)
		if st.Median < 0 && float64(cum) >= half {
			st.Median = b
		}
		if st.Min < 0 {
			st.Min = b
		}
		st.Max = b
	}
	return st, true
}

func rightBound(bin int64) float64 { return math.Ldexp(1, int(bin)) }

func summarizeTransactions(txs []storage.Transaction) TxSummary {
	s := TxSummary{
		Count:     len(txs),
		ByType:    make(map[int64]int),
		ByTER:     make(map[int64]int),
		Histogram: make([]int64, probe.LatencyBuckets),
	}
	for _, tx := range txs {
		s.ByType[tx.Type]++
		s.ByTER[tx.TER]++
		d, _ := safe.Int64ToUint64(tx.Duration)
		b, _ := probe.Log2Bucket(d, probe.LatencyBuckets)
		s.Histogram[b]++
	}
	return s
}
