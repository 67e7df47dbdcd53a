//go:build linux

package ebpf

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/rlimit"
	"github.com/rs/zerolog"

	"github.com/seelabs/xrpl-probe/internal/agent/ebpf/uprobe"
)

// removeMemlock lifts RLIMIT_MEMLOCK on kernels that still charge BPF maps
// against it.
func removeMemlock() error {
	if err := rlimit.RemoveMemlock(); err != nil {
		return fmt.Errorf("remove memlock limit: %w", err)
	}
	return nil
}

// attach wires the entry and exit programs to target. defaultReturn makes a
// missing exit symbol mean "return of the entry function".
func attach(target Target, entry, exit *ebpf.Program, defaultReturn bool, logger zerolog.Logger) (*uprobe.AttachResult, error) {
	if target.KernelSymbol != "" {
		return uprobe.AttachKernel(uprobe.KernelAttachConfig{
			Symbol: target.KernelSymbol,
			Logger: logger,
		}, entry, exit)
	}

	exitIsReturn := target.ExitIsReturn
	if target.ExitSymbol == "" {
		exitIsReturn = defaultReturn
	}
	return uprobe.Attach(uprobe.AttachConfig{
		BinaryPath:   target.BinaryPath,
		PID:          target.PID,
		EntrySymbol:  target.EntrySymbol,
		ExitSymbol:   target.ExitSymbol,
		ExitIsReturn: exitIsReturn,
		Logger:       logger,
	}, entry, exit)
}
