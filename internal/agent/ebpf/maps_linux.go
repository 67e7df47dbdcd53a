//go:build linux

package ebpf

import (
	"fmt"

	"github.com/cilium/ebpf"

	"github.com/seelabs/xrpl-probe/internal/probe"
)

// Indexes of the stats array, in the order of probe.StatsSnapshot.
const (
	statEntries = iota
	statExits
	statMatched
	statFiltered
	statMissedStart
	statTableFull
	statOrphanOverwrite
	statClampedBuckets
	statExportDropped
	statArgReadFailures
	statCount
)

// readCounters copies the first n values of a u64 array map.
func readCounters(m *ebpf.Map, n int) ([]uint64, error) {
	out := make([]uint64, n)
	for i := range out {
		if err := m.Lookup(uint32(i), &out[i]); err != nil {
			return nil, fmt.Errorf("lookup %s[%d]: %w", m, i, err)
		}
	}
	return out, nil
}

// statsFromCounters maps the stats array onto a snapshot.
func statsFromCounters(c []uint64) probe.StatsSnapshot {
	if len(c) < statCount {
		return probe.StatsSnapshot{}
	}
	return probe.StatsSnapshot{
		Entries:         c[statEntries],
		Exits:           c[statExits],
		Matched:         c[statMatched],
		Filtered:        c[statFiltered],
		MissedStart:     c[statMissedStart],
		TableFull:       c[statTableFull],
		OrphanOverwrite: c[statOrphanOverwrite],
		ClampedBuckets:  c[statClampedBuckets],
		ExportDropped:   c[statExportDropped],
		ArgReadFailures: c[statArgReadFailures],
	}
}

func readStats(m *ebpf.Map) (probe.StatsSnapshot, error) {
	c, err := readCounters(m, statCount)
	if err != nil {
		return probe.StatsSnapshot{}, err
	}
	return statsFromCounters(c), nil
}
