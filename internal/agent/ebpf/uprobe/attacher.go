//go:build linux

// Package uprobe attaches a pair of BPF programs to the entry and the exit
// of a user-space function or a kernel function.
package uprobe

import (
	"errors"
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/rs/zerolog"

	cleanup "github.com/seelabs/xrpl-probe/internal/errors"
)

// AttachConfig describes where the programs are attached.
type AttachConfig struct {
	// BinaryPath is the executable or shared library holding the symbols.
	// Empty with a PID set means /proc/<pid>/exe.
	BinaryPath string

	// PID restricts the probes to one process. Zero probes every process
	// mapping the binary.
	PID int

	// EntrySymbol receives the entry program as a uprobe.
	EntrySymbol string

	// ExitSymbol receives the exit program. When ExitSymbol is empty the exit
	// program is a uretprobe on EntrySymbol. When it differs from
	// EntrySymbol and ExitIsReturn is set the exit program is a uretprobe on
	// ExitSymbol; otherwise it is a uprobe at the start of ExitSymbol.
	ExitSymbol   string
	ExitIsReturn bool

	Logger zerolog.Logger
}

// KernelAttachConfig describes a kprobe/kretprobe pair on one kernel function.
type KernelAttachConfig struct {
	Symbol string
	Logger zerolog.Logger
}

// AttachResult holds the links created by an attach call.
type AttachResult struct {
	EntryLink link.Link
	ExitLink  link.Link
}

// Close detaches both programs.
func (r *AttachResult) Close() error {
	if r == nil {
		return nil
	}
	return cleanup.CloseAll(r.EntryLink, r.ExitLink)
}

// ResolveBinary returns the path the probes are attached through.
func (cfg AttachConfig) ResolveBinary() (string, error) {
	switch {
	case cfg.BinaryPath != "":
		return cfg.BinaryPath, nil
	case cfg.PID > 0:
		// Works for targets in another mount namespace sharing our pid
		// namespace.
		return fmt.Sprintf("/proc/%d/exe", cfg.PID), nil
	default:
		return "", errors.New("uprobe: binary path or pid is required")
	}
}

// Attach attaches entryProg to the entry symbol and exitProg to the exit
// point described by cfg.
func Attach(cfg AttachConfig, entryProg, exitProg *ebpf.Program) (*AttachResult, error) {
	if entryProg == nil || exitProg == nil {
		return nil, errors.New("uprobe: entry and exit programs are required")
	}
	if cfg.EntrySymbol == "" {
		return nil, errors.New("uprobe: entry symbol is required")
	}

	path, err := cfg.ResolveBinary()
	if err != nil {
		return nil, err
	}

	exe, err := link.OpenExecutable(path)
	if err != nil {
		return nil, fmt.Errorf("open executable (path=%s): %w", path, err)
	}

	opts := &link.UprobeOptions{PID: cfg.PID}
	result := &AttachResult{}

	cfg.Logger.Debug().
		Str("binary", path).
		Str("symbol", cfg.EntrySymbol).
		Int("pid", cfg.PID).
		Msg("Attaching uprobe to function entry")

	result.EntryLink, err = exe.Uprobe(cfg.EntrySymbol, entryProg, opts)
	if err != nil {
		return nil, fmt.Errorf("attach uprobe %s: %w", cfg.EntrySymbol, err)
	}

	exitSymbol := cfg.ExitSymbol
	asReturn := cfg.ExitIsReturn
	if exitSymbol == "" {
		exitSymbol = cfg.EntrySymbol
		asReturn = true
	}

	if asReturn {
		result.ExitLink, err = exe.Uretprobe(exitSymbol, exitProg, opts)
	} else {
		result.ExitLink, err = exe.Uprobe(exitSymbol, exitProg, opts)
	}
	if err != nil {
		_ = result.Close()
		return nil, fmt.Errorf("attach exit probe %s: %w", exitSymbol, err)
	}

	cfg.Logger.Info().
		Str("binary", path).
		Str("entry", cfg.EntrySymbol).
		Str("exit", exitSymbol).
		Bool("exit_is_return", asReturn).
		Int("pid", cfg.PID).
		Msg("Attached uprobes")

	return result, nil
}

// AttachKernel attaches entryProg as a kprobe and exitProg as a kretprobe on
// a kernel function.
func AttachKernel(cfg KernelAttachConfig, entryProg, exitProg *ebpf.Program) (*AttachResult, error) {
	if entryProg == nil || exitProg == nil {
		return nil, errors.New("kprobe: entry and exit programs are required")
	}

	result := &AttachResult{}
	var err error

	result.EntryLink, err = link.Kprobe(cfg.Symbol, entryProg, nil)
	if err != nil {
		return nil, fmt.Errorf("attach kprobe %s: %w", cfg.Symbol, err)
	}
	result.ExitLink, err = link.Kretprobe(cfg.Symbol, exitProg, nil)
	if err != nil {
		_ = result.Close()
		return nil, fmt.Errorf("attach kretprobe %s: %w", cfg.Symbol, err)
	}

	cfg.Logger.Info().Str("symbol", cfg.Symbol).Msg("Attached kprobes")
	return result, nil
}
