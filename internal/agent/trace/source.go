package trace

import (
	"context"

	"github.com/seelabs/xrpl-probe/internal/probe"
)

// LatencySource yields cumulative latency counters. probe.LatencyProbe and
// the kernel LatencyCollector both implement it.
type LatencySource interface {
	Snapshot() probe.LatencySnapshot
}

// EventSource yields completed transactions. probe.EventReader and the
// kernel TxCollector both implement it.
type EventSource interface {
	Drain() []probe.ExportedEvent
	Lost() uint64
}

// statsSource is implemented by sources that count their degradations.
type statsSource interface {
	Stats() probe.StatsSnapshot
}

// Runnable is implemented by sources that need a goroutine of their own.
type Runnable interface {
	Run(ctx context.Context) error
}

// Binding attaches a latency source to the probe it measures.
type Binding struct {
	Probe  Probe
	Source LatencySource
}

// Sources is everything a Runner samples.
type Sources struct {
	Latency []Binding
	// Events is nil when the transaction pipeline is disabled.
	Events EventSource
	// Background runs alongside the sampling loop, e.g. a workload driving
	// in-process probes.
	Background []Runnable
}

// RunnableFunc adapts a function to Runnable.
type RunnableFunc func(ctx context.Context) error

// Run implements Runnable.
func (f RunnableFunc) Run(ctx context.Context) error { return f(ctx) }
