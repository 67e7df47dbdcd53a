// Package proc resolves the process and kernel targets of a collection.
package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/process"
)

// ErrNoProcess is returned when no running process matches a target.
var ErrNoProcess = errors.New("no matching process")

// Executable returns the resolved path of the binary running as pid. A
// binary replaced on disk since the process started keeps its "(deleted)"
// suffix stripped so the symbol table can still be opened by path.
func Executable(ctx context.Context, pid int) (string, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return "", fmt.Errorf("process %d: %w", pid, err)
	}
	exe, err := p.ExeWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("executable of process %d: %w", pid, err)
	}
	return strings.TrimSuffix(exe, " (deleted)"), nil
}

// Alive reports whether pid is still running.
func Alive(ctx context.Context, pid int) bool {
	ok, err := process.PidExistsWithContext(ctx, int32(pid))
	return err == nil && ok
}

// FindByExecutable returns the pids, lowest first, whose executable is exe
// (compared after resolving symlinks) or whose name equals exe's base name.
func FindByExecutable(ctx context.Context, exe string) ([]int, error) {
	want := exe
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		want = resolved
	}
	base := filepath.Base(exe)

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var pids []int
	for _, p := range procs {
		if path, err := p.ExeWithContext(ctx); err == nil {
			if strings.TrimSuffix(path, " (deleted)") == want {
				pids = append(pids, int(p.Pid))
				continue
			}
		}
		if name, err := p.NameWithContext(ctx); err == nil && name == base {
			pids = append(pids, int(p.Pid))
		}
	}
	if len(pids) == 0 {
		return nil, fmt.Errorf("%s: %w", exe, ErrNoProcess)
	}
	sort.Ints(pids)
	return pids, nil
}

// KernelVersion returns the running kernel release, or "unknown".
func KernelVersion(ctx context.Context) string {
	v, err := host.KernelVersionWithContext(ctx)
	if err != nil || v == "" {
		return "unknown"
	}
	return v
}

// KernelSymbol is one line of /proc/kallsyms.
type KernelSymbol struct {
	Address uint64
	Type    byte
	Name    string
	Module  string // empty for the core kernel
}

// ReadKallsyms parses /proc/kallsyms. The second result counts symbols
// hidden behind a zero address, which means kptr_restrict is in effect.
func ReadKallsyms() ([]KernelSymbol, int, error) {
	f, err := os.Open("/proc/kallsyms")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open /proc/kallsyms: %w", err)
	}
	defer f.Close() // nolint:errcheck

	return ParseKallsyms(f)
}

// ParseKallsyms parses kallsyms-formatted text.
func ParseKallsyms(r io.Reader) ([]KernelSymbol, int, error) {
	var symbols []KernelSymbol
	zero := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			continue
		}
		addr, err := strconv.ParseUint(parts[0], 16, 64)
		if err != nil {
			continue
		}
		if addr == 0 {
			zero++
			continue
		}

		sym := KernelSymbol{Address: addr, Type: parts[1][0], Name: parts[2]}
		if len(parts) > 3 && strings.HasPrefix(parts[3], "[") && strings.HasSuffix(parts[3], "]") {
			sym.Module = strings.Trim(parts[3], "[]")
		}
		symbols = append(symbols, sym)
	}
	if err := scanner.Err(); err != nil {
		return nil, zero, fmt.Errorf("failed to read kallsyms: %w", err)
	}
	return symbols, zero, nil
}

// HasKernelFunction reports whether name is a text symbol in symbols.
func HasKernelFunction(symbols []KernelSymbol, name string) bool {
	for _, s := range symbols {
		if s.Name == name && (s.Type == 't' || s.Type == 'T') {
			return true
		}
	}
	return false
}
