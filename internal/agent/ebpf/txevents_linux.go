//go:build linux

package ebpf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cilium/ebpf/perf"
	"github.com/rs/zerolog"

	"github.com/seelabs/xrpl-probe/internal/agent/ebpf/uprobe"
	cleanup "github.com/seelabs/xrpl-probe/internal/errors"
	"github.com/seelabs/xrpl-probe/internal/probe"
)

const (
	defaultPerCPUBuffer = 64 * 4096
	defaultBacklog      = 65536
	pollInterval        = 200 * time.Millisecond
)

// TxCollector runs the transaction pipeline in the kernel and decodes the
// records it exports through the perf buffer.
type TxCollector struct {
	logger  zerolog.Logger
	objs    *txObjects
	links   *uprobe.AttachResult
	reader  *perf.Reader
	backlog int

	mu        sync.Mutex
	events    []probe.ExportedEvent
	lost      uint64
	lastStats probe.StatsSnapshot
}

// NewTxCollector loads the transaction programs, attaches them and opens the
// perf reader. Call Run to start consuming records.
func NewTxCollector(cfg TxConfig) (*TxCollector, error) {
	if err := cfg.Target.Validate(); err != nil {
		return nil, err
	}
	if err := removeMemlock(); err != nil {
		return nil, err
	}

	objs, err := loadTxObjects(cfg.ObjectDir, cfg.Target.tgid(), cfg.Capacity)
	if err != nil {
		return nil, err
	}

	size := cfg.PerCPUBuffer
	if size <= 0 {
		size = defaultPerCPUBuffer
	}
	reader, err := perf.NewReader(objs.Events, size)
	if err != nil {
		_ = objs.Close()
		return nil, fmt.Errorf("open perf reader: %w", err)
	}

	links, err := attach(cfg.Target, objs.Entry, objs.Exit, false, cfg.Logger)
	if err != nil {
		_ = cleanup.CloseAll(objs, reader)
		return nil, err
	}

	backlog := cfg.Backlog
	if backlog <= 0 {
		backlog = defaultBacklog
	}

	return &TxCollector{
		logger:  cfg.Logger.With().Str("collector", "txevents").Logger(),
		objs:    objs,
		links:   links,
		reader:  reader,
		backlog: backlog,
	}, nil
}

// Run reads records until ctx is done or the reader is closed.
func (c *TxCollector) Run(ctx context.Context) error {
	var rec perf.Record
	for {
		if ctx.Err() != nil {
			return nil
		}

		c.reader.SetDeadline(time.Now().Add(pollInterval))
		if err := c.reader.ReadInto(&rec); err != nil {
			if errors.Is(err, perf.ErrClosed) {
				return nil
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			c.logger.Warn().Err(err).Msg("Failed to read perf record")
			continue
		}

		if rec.LostSamples > 0 {
			c.addLost(rec.LostSamples)
			continue
		}

		ev, err := probe.DecodeEvent(rec.RawSample)
		if err != nil {
			c.logger.Debug().Err(err).Int("cpu", rec.CPU).Msg("Dropping malformed record")
			c.addLost(1)
			continue
		}
		c.push(ev)
	}
}

func (c *TxCollector) push(ev probe.ExportedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) >= c.backlog {
		c.lost++
		return
	}
	c.events = append(c.events, ev)
}

func (c *TxCollector) addLost(n uint64) {
	c.mu.Lock()
	c.lost += n
	c.mu.Unlock()
}

// Drain returns and clears the decoded records.
func (c *TxCollector) Drain() []probe.ExportedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

// Lost returns the records lost in the perf buffer or the backlog.
func (c *TxCollector) Lost() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}

// Stats reads the degradation counters of the kernel programs.
func (c *TxCollector) Stats() probe.StatsSnapshot {
	st, err := readStats(c.objs.Stats)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read stats map")
		return c.lastStats
	}
	c.lastStats = st
	return st
}

// Close detaches the probes first so no record is produced into a closed
// reader.
func (c *TxCollector) Close() error {
	if err := cleanup.CloseAll(c.objs, c.reader, c.links); err != nil {
		return fmt.Errorf("close tx collector: %w", err)
	}
	return nil
}
