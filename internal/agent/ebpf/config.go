package ebpf

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/seelabs/xrpl-probe/internal/probe"
	"github.com/seelabs/xrpl-probe/internal/safe"
)

// ErrUnsupported is returned on platforms without eBPF.
var ErrUnsupported = errors.New("ebpf: not supported on this platform")

// Target selects the attach point of a collector. Exactly one of
// KernelSymbol or EntrySymbol must be set.
type Target struct {
	// BinaryPath is the traced executable; empty means /proc/<PID>/exe.
	BinaryPath string
	// PID restricts attachment and filtering to one process.
	PID int

	EntrySymbol  string
	ExitSymbol   string
	ExitIsReturn bool

	// KernelSymbol attaches a kprobe/kretprobe pair instead of uprobes.
	KernelSymbol string
}

// LatencyConfig configures a LatencyCollector.
type LatencyConfig struct {
	ObjectDir string
	Target    Target
	Capacity  int
	Band      probe.OutcomeBand
	Logger    zerolog.Logger
}

// TxConfig configures a TxCollector.
type TxConfig struct {
	ObjectDir string
	Target    Target
	Capacity  int
	// PerCPUBuffer is the perf ring size per CPU in bytes.
	PerCPUBuffer int
	// Backlog bounds the decoded events kept between two Drain calls.
	Backlog int
	Logger  zerolog.Logger
}

// Validate checks the attach point.
func (t Target) Validate() error {
	switch {
	case t.KernelSymbol != "" && t.EntrySymbol != "":
		return errors.New("ebpf: set either a kernel symbol or a user symbol, not both")
	case t.KernelSymbol == "" && t.EntrySymbol == "":
		return errors.New("ebpf: an entry symbol is required")
	case t.KernelSymbol == "" && t.BinaryPath == "" && t.PID <= 0:
		return errors.New("ebpf: a binary path or pid is required for uprobes")
	}
	return nil
}

// tgid is the process filter written into the BPF programs. Kernel probes
// trace every process.
func (t Target) tgid() uint32 {
	if t.KernelSymbol != "" {
		return 0
	}
	tgid, _ := safe.IntToUint32(t.PID)
	return tgid
}
