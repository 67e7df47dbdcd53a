//go:build linux

package ebpf

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/seelabs/xrpl-probe/internal/agent/ebpf/uprobe"
	cleanup "github.com/seelabs/xrpl-probe/internal/errors"
	"github.com/seelabs/xrpl-probe/internal/probe"
)

// LatencyCollector runs the latency pipeline in the kernel. Its snapshots
// are cumulative since attach, like probe.LatencyProbe's.
type LatencyCollector struct {
	logger zerolog.Logger
	objs   *latencyObjects
	links  *uprobe.AttachResult

	mu         sync.Mutex
	last       probe.LatencySnapshot
	lastStats  probe.StatsSnapshot
	readErrors uint64
}

// NewLatencyCollector loads the latency programs and attaches them.
func NewLatencyCollector(cfg LatencyConfig) (*LatencyCollector, error) {
	if err := cfg.Target.Validate(); err != nil {
		return nil, err
	}
	if err := removeMemlock(); err != nil {
		return nil, err
	}

	objs, err := loadLatencyObjects(cfg.ObjectDir, cfg.Target.tgid(), cfg.Capacity, cfg.Band)
	if err != nil {
		return nil, err
	}

	links, err := attach(cfg.Target, objs.Entry, objs.Return, true, cfg.Logger)
	if err != nil {
		_ = objs.Close()
		return nil, err
	}

	return &LatencyCollector{
		logger: cfg.Logger.With().Str("collector", "latency").Logger(),
		objs:   objs,
		links:  links,
		last:   probe.NewLatencySnapshot(),
	}, nil
}

// Snapshot reads the four counter arrays. On a read error the previous
// snapshot is returned so that the next timeslice delta stays non-negative.
func (c *LatencyCollector) Snapshot() probe.LatencySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.read()
	if err != nil {
		c.readErrors++
		c.logger.Warn().Err(err).Uint64("read_errors", c.readErrors).Msg("Failed to read latency maps")
		return c.last
	}
	c.last = snap
	return snap
}

func (c *LatencyCollector) read() (probe.LatencySnapshot, error) {
	var (
		s   probe.LatencySnapshot
		err error
	)
	if s.Dist, err = readCounters(c.objs.Dist, probe.LatencyBuckets); err != nil {
		return s, err
	}
	if s.Band, err = readCounters(c.objs.Band, probe.BandBuckets); err != nil {
		return s, err
	}
	if s.Negative, err = readCounters(c.objs.Negs, probe.NegativeBuckets); err != nil {
		return s, err
	}
	if s.Result, err = readCounters(c.objs.Result, probe.ResultBuckets); err != nil {
		return s, err
	}
	return s, nil
}

// Stats reads the degradation counters of the kernel programs.
func (c *LatencyCollector) Stats() probe.StatsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := readStats(c.objs.Stats)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read stats map")
		return c.lastStats
	}
	c.lastStats = st
	return st
}

// Close detaches the probes and releases the kernel objects.
func (c *LatencyCollector) Close() error {
	if err := cleanup.CloseAll(c.objs, c.links); err != nil {
		return fmt.Errorf("close latency collector: %w", err)
	}
	return nil
}
