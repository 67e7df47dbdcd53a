package export

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/pprof/profile"

	"github.com/seelabs/xrpl-probe/internal/report"
)

// Profile turns the latency histograms of s into a pprof profile with one
// sample per probe and bucket. Values are the call count and the latency
// estimated from bucket lower bounds; the bucket bound is attached as the
// numeric label "bucket" so pprof's tag filters can select a latency range.
func Profile(s *report.Summary) *profile.Profile {
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "calls", Unit: "count"},
			{Type: "latency", Unit: "microseconds"},
		},
		DefaultSampleType: "latency",
		TimeNanos:         time.Unix(s.Collection.Start, 0).UnixNano(),
		Comments:          []string{"collection " + s.Collection.ID, "commit " + s.Collection.GitCommit},
	}
	if s.Collection.End > s.Collection.Start {
		prof.DurationNanos = int64(time.Duration(s.Collection.End-s.Collection.Start) * time.Second)
	}

	for i, p := range s.Probes {
		id := uint64(i + 1)
		fn := &profile.Function{ID: id, Name: p.Name, SystemName: p.Name}
		loc := &profile.Location{ID: id, Line: []profile.Line{{Function: fn}}}
		prof.Function = append(prof.Function, fn)
		prof.Location = append(prof.Location, loc)

		for bin, n := range p.Histogram {
			if n == 0 {
				continue
			}
			lower := math.Ldexp(1, bin)
			prof.Sample = append(prof.Sample, &profile.Sample{
				Location: []*profile.Location{loc},
				Value:    []int64{n, int64(float64(n) * lower)},
				NumLabel: map[string][]int64{"bucket": {int64(lower)}},
				NumUnit:  map[string][]string{"bucket": {"microseconds"}},
				Label:    map[string][]string{"probe": {p.Name}},
			})
		}
	}
	return prof
}

// WritePprof writes the gzipped pprof profile of s to path.
func WritePprof(path string, s *report.Summary) error {
	prof := Profile(s)
	if err := prof.CheckValid(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	//nolint:gosec // G304: path is chosen by the operator.
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := prof.Write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
