package probe

import "sync/atomic"

// Stats counts the silent degradations of a probe. All fields are updated
// atomically from the entry/exit path.
type Stats struct {
	Entries         atomic.Uint64
	Exits           atomic.Uint64
	Matched         atomic.Uint64
	Filtered        atomic.Uint64
	MissedStart     atomic.Uint64
	TableFull       atomic.Uint64
	OrphanOverwrite atomic.Uint64
	ClampedBuckets  atomic.Uint64
	ExportDropped   atomic.Uint64
	ArgReadFailures atomic.Uint64
}

// StatsSnapshot is a plain copy of Stats.
type StatsSnapshot struct {
	Entries         uint64 `json:"entries"`
	Exits           uint64 `json:"exits"`
	Matched         uint64 `json:"matched"`
	Filtered        uint64 `json:"filtered"`
	MissedStart     uint64 `json:"missed_start"`
	TableFull       uint64 `json:"table_full"`
	OrphanOverwrite uint64 `json:"orphan_overwrite"`
	ClampedBuckets  uint64 `json:"clamped_buckets"`
	ExportDropped   uint64 `json:"export_dropped"`
	ArgReadFailures uint64 `json:"arg_read_failures"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Entries:         s.Entries.Load(),
		Exits:           s.Exits.Load(),
		Matched:         s.Matched.Load(),
		Filtered:        s.Filtered.Load(),
		MissedStart:     s.MissedStart.Load(),
		TableFull:       s.TableFull.Load(),
		OrphanOverwrite: s.OrphanOverwrite.Load(),
		ClampedBuckets:  s.ClampedBuckets.Load(),
		ExportDropped:   s.ExportDropped.Load(),
		ArgReadFailures: s.ArgReadFailures.Load(),
	}
}
