//go:build !linux

package ebpf

import (
	"context"

	"github.com/seelabs/xrpl-probe/internal/probe"
)

func hasCapBPF() bool { return false }

func missingFeatures() []string { return []string{"linux"} }

// LatencyCollector is unavailable on this platform.
type LatencyCollector struct{}

// NewLatencyCollector always fails with ErrUnsupported.
func NewLatencyCollector(LatencyConfig) (*LatencyCollector, error) { return nil, ErrUnsupported }

func (*LatencyCollector) Snapshot() probe.LatencySnapshot { return probe.NewLatencySnapshot() }
func (*LatencyCollector) Stats() probe.StatsSnapshot { return probe.StatsSnapshot{} }
func (*LatencyCollector) Close() error { return nil }

// TxCollector is unavailable on this platform.
type TxCollector struct{}

// NewTxCollector always fails with ErrUnsupported.
func NewTxCollector(TxConfig) (*TxCollector, error) { return nil, ErrUnsupported }

func (*TxCollector) Run(context.Context) error { return ErrUnsupported }
func (*TxCollector) Drain() []probe.ExportedEvent { return nil }
func (*TxCollector) Lost() uint64 { return 0 }
func (*TxCollector) Stats() probe.StatsSnapshot { return probe.StatsSnapshot{} }
func (*TxCollector) Close() error { return nil }
