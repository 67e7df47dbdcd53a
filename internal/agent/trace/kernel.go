package trace

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/seelabs/xrpl-probe/internal/agent/ebpf"
	cleanup "github.com/seelabs/xrpl-probe/internal/errors"
	"github.com/seelabs/xrpl-probe/internal/probe"
	"github.com/seelabs/xrpl-probe/internal/sys/proc"
)

// KernelConfig selects the traced process and the BPF objects.
type KernelConfig struct {
	ObjectDir  string
	BinaryPath string
	PID        int

	Capacity int
	Band     probe.OutcomeBand

	// Transactions attaches the transaction pipeline between the transactor
	// entry and TxExitSymbol.
	Transactions bool
	TxExitSymbol string
	EventBuffer  int

	Logger zerolog.Logger
}

type closers []io.Closer

func (c closers) Close() error { return cleanup.CloseAll(c...) }

// KernelSources attaches a LatencyCollector per probe and, if enabled, a
// TxCollector. The returned closer detaches everything.
func KernelSources(ctx context.Context, cfg KernelConfig, probes []Probe) (Sources, io.Closer, error) {
	var (
		src  Sources
		open closers
	)
	fail := func(err error) (Sources, io.Closer, error) {
		_ = open.Close()
		return Sources{}, nil, err
	}

	for _, p := range probes {
		if p.KernelSymbol != "" {
			if err := checkKernelFunction(p.KernelSymbol); err != nil {
				return fail(err)
			}
		}

		c, err := ebpf.NewLatencyCollector(ebpf.LatencyConfig{
			ObjectDir: cfg.ObjectDir,
			Target:    targetFor(cfg, p),
			Capacity:  cfg.Capacity,
			Band:      cfg.Band,
			Logger:    cfg.Logger.With().Str("probe", p.Name).Logger(),
		})
		if err != nil {
			return fail(fmt.Errorf("attach probe %s: %w", p.Name, err))
		}
		open = append(open, c)
		src.Latency = append(src.Latency, Binding{Probe: p, Source: c})
	}

	if cfg.Transactions {
		c, err := ebpf.NewTxCollector(ebpf.TxConfig{
			ObjectDir: cfg.ObjectDir,
			Target: ebpf.Target{
				BinaryPath:  cfg.BinaryPath,
				PID:         cfg.PID,
				EntrySymbol: TransactorSymbol,
				ExitSymbol:  cfg.TxExitSymbol,
			},
			Capacity:     cfg.Capacity,
			PerCPUBuffer: cfg.EventBuffer,
			Logger:       cfg.Logger.With().Str("probe", "transactions").Logger(),
		})
		if err != nil {
			return fail(fmt.Errorf("attach transaction pipeline: %w", err))
		}
		open = append(open, c)
		src.Events = c
	}

	if cfg.PID > 0 && !proc.Alive(ctx, cfg.PID) {
		return fail(fmt.Errorf("pid %d: %w", cfg.PID, proc.ErrNoProcess))
	}
	return src, open, nil
}

// targetFor maps a probe to its attach point. Two-symbol probes end on the
// return of the exit function.
func targetFor(cfg KernelConfig, p Probe) ebpf.Target {
	if p.KernelSymbol != "" {
		return ebpf.Target{KernelSymbol: p.KernelSymbol}
	}
	return ebpf.Target{
		BinaryPath:   cfg.BinaryPath,
		PID:          cfg.PID,
		EntrySymbol:  p.EntrySymbol,
		ExitSymbol:   p.ExitSymbol,
		ExitIsReturn: p.ExitSymbol != "",
	}
}

func checkKernelFunction(name string) error {
	symbols, hidden, err := proc.ReadKallsyms()
	if err != nil {
		return fmt.Errorf("read kernel symbols: %w", err)
	}
	// With kptr_restrict every address reads as zero and names cannot be
	// checked here; the kprobe attach reports a missing symbol instead.
	if len(symbols) == 0 && hidden > 0 {
		return nil
	}
	if !proc.HasKernelFunction(symbols, name) {
		return fmt.Errorf("kernel function %q not found", name)
	}
	return nil
}
