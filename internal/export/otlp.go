// Package export converts stored collections into OTLP metrics and
// Prometheus remote-write series.
package export

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/pmetric"

	"github.com/seelabs/xrpl-probe/internal/probe"
	"github.com/seelabs/xrpl-probe/internal/report"
	"github.com/seelabs/xrpl-probe/pkg/version"
)

// Metric names shared by both exporters.
const (
	LatencyMetric = "xrpl_probe_latency"
	OutcomeMetric = "xrpl_probe_outcomes"
	ScopeName     = "github.com/seelabs/xrpl-probe"
)

// LatencyBounds returns the upper bounds in microseconds of the log2
// buckets: bucket i holds durations below 2^(i+1) µs. The last bucket is
// unbounded.
func LatencyBounds() []float64 {
	bounds := make([]float64, probe.LatencyBuckets-1)
	for i := range bounds {
		bounds[i] = math.Ldexp(1, i+1)
	}
	return bounds
}

// Metrics builds one delta histogram point per probe timeslice and one
// cumulative sum point per outcome code.
func Metrics(s *report.Summary) pmetric.Metrics {
	md := pmetric.NewMetrics()
	rm := md.ResourceMetrics().AppendEmpty()
	attrs := rm.Resource().Attributes()
	attrs.PutStr("service.name", "xrpl-probe")
	attrs.PutStr("service.version", version.Version)
	attrs.PutStr("xrpl.collection.id", s.Collection.ID)
	attrs.PutStr("xrpl.git_commit", s.Collection.GitCommit)
	if len(s.Tags) > 0 {
		tags := attrs.PutEmptySlice("xrpl.tags")
		for _, t := range s.Tags {
			tags.AppendEmpty().SetStr(t)
		}
	}

	sm := rm.ScopeMetrics().AppendEmpty()
	sm.Scope().SetName(ScopeName)
	sm.Scope().SetVersion(version.Version)

	start := unixTimestamp(s.Collection.Start)
	end := unixTimestamp(s.Collection.End)
	bounds := LatencyBounds()

	latency := sm.Metrics().AppendEmpty()
	latency.SetName(LatencyMetric)
	latency.SetDescription("Latency of probed functions")
	latency.SetUnit("us")
	hist := latency.SetEmptyHistogram()
	hist.SetAggregationTemporality(pmetric.AggregationTemporalityDelta)

	for _, p := range s.Probes {
		prev := start
		for _, slice := range p.Slices {
			ts := unixTimestamp(slice.Timestamp)
			dp := hist.DataPoints().AppendEmpty()
			dp.Attributes().PutStr("probe", p.Name)
			dp.Attributes().PutInt("probe_id", p.ID)
			dp.SetStartTimestamp(prev)
			dp.SetTimestamp(ts)
			dp.SetCount(uint64(slice.Count))
			dp.SetSum(histogramSum(slice.Histogram))
			dp.ExplicitBounds().FromRaw(bounds)
			dp.BucketCounts().FromRaw(toUint64(slice.Histogram))
			prev = ts
		}
	}

	outcomes := sm.Metrics().AppendEmpty()
	outcomes.SetName(OutcomeMetric)
	outcomes.SetDescription("Return codes of probed functions")
	outcomes.SetUnit("{call}")
	sum := outcomes.SetEmptySum()
	sum.SetIsMonotonic(true)
	sum.SetAggregationTemporality(pmetric.AggregationTemporalityCumulative)

	for _, p := range s.Probes {
		for i, n := range p.Outcomes {
			if n == 0 {
				continue
			}
			dp := sum.DataPoints().AppendEmpty()
			dp.Attributes().PutStr("probe", p.Name)
			dp.Attributes().PutStr("ter", strconv.Itoa(i+report.MinTER))
			dp.SetStartTimestamp(start)
			dp.SetTimestamp(end)
			dp.SetIntValue(n)
		}
	}
	return md
}

// MarshalOTLP renders the metrics of s as OTLP/JSON.
func MarshalOTLP(s *report.Summary) ([]byte, error) {
	var m pmetric.JSONMarshaler
	data, err := m.MarshalMetrics(Metrics(s))
	if err != nil {
		return nil, fmt.Errorf("marshal otlp metrics: %w", err)
	}
	return data, nil
}

// WriteOTLP writes the OTLP/JSON metrics of s to path.
func WriteOTLP(path string, s *report.Summary) error {
	data, err := MarshalOTLP(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// histogramSum estimates the sum of a log2 histogram from bucket lower
// bounds, in microseconds.
func histogramSum(hist []int64) float64 {
	var sum float64
	for i, n := range hist {
		sum += float64(n) * math.Ldexp(1, i)
	}
	return sum
}

func toUint64(in []int64) []uint64 {
	out := make([]uint64, len(in))
	for i, v := range in {
		if v > 0 {
			out[i] = uint64(v)
		}
	}
	return out
}

func unixTimestamp(sec int64) pcommon.Timestamp {
	return pcommon.NewTimestampFromTime(time.Unix(sec, 0))
}
