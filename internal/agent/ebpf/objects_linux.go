//go:build linux

package ebpf

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cilium/ebpf"

	cleanup "github.com/seelabs/xrpl-probe/internal/errors"
	"github.com/seelabs/xrpl-probe/internal/probe"
	"github.com/seelabs/xrpl-probe/internal/safe"
)

// Object file names inside the object directory.
const (
	LatencyObject = "latency.bpf.o"
	TxObject      = "txevents.bpf.o"
)

// ErrCapacity is returned for a non-positive start table capacity.
var ErrCapacity = errors.New("ebpf: start table capacity must be positive")

type latencyObjects struct {
	Entry  *ebpf.Program `ebpf:"trace_func_entry"`
	Return *ebpf.Program `ebpf:"trace_func_return"`

	Start  *ebpf.Map `ebpf:"start"`
	Stats  *ebpf.Map `ebpf:"stats"`
	Dist   *ebpf.Map `ebpf:"dist"`
	Band   *ebpf.Map `ebpf:"band"`
	Negs   *ebpf.Map `ebpf:"negs"`
	Result *ebpf.Map `ebpf:"result"`
}

func (o *latencyObjects) Close() error {
	return cleanup.CloseAll(o.Entry, o.Return, o.Start, o.Stats, o.Dist, o.Band, o.Negs, o.Result)
}

type txObjects struct {
	Entry *ebpf.Program `ebpf:"trace_txn_entry"`
	Exit  *ebpf.Program `ebpf:"trace_txn_exit"`

	Start  *ebpf.Map `ebpf:"start"`
	Stats  *ebpf.Map `ebpf:"stats"`
	Events *ebpf.Map `ebpf:"exit_data"`
}

func (o *txObjects) Close() error {
	return cleanup.CloseAll(o.Entry, o.Exit, o.Start, o.Stats, o.Events)
}

// loadSpec reads an object file, rewrites its constants and resizes the
// start table.
func loadSpec(path string, capacity int, consts map[string]any) (*ebpf.CollectionSpec, error) {
	if capacity <= 0 {
		return nil, ErrCapacity
	}

	spec, err := ebpf.LoadCollectionSpec(path)
	if err != nil {
		return nil, fmt.Errorf("load collection spec %s: %w", path, err)
	}
	if err := spec.RewriteConstants(consts); err != nil {
		return nil, fmt.Errorf("rewrite constants in %s: %w", path, err)
	}

	start, ok := spec.Maps["start"]
	if !ok {
		return nil, fmt.Errorf("%s: map start not found", path)
	}
	entries, clamped := safe.IntToUint32(capacity)
	if clamped {
		return nil, fmt.Errorf("%s: invalid start table capacity %d", path, capacity)
	}
	start.MaxEntries = entries

	return spec, nil
}

// loadLatencyObjects loads the latency pipeline from dir.
func loadLatencyObjects(dir string, tgid uint32, capacity int, band probe.OutcomeBand) (*latencyObjects, error) {
	spec, err := loadSpec(filepath.Join(dir, LatencyObject), capacity, map[string]any{
		"filter_tgid": tgid,
		"band_start":  int32(band.Start),
		"band_end":    int32(band.End),
	})
	if err != nil {
		return nil, err
	}

	objs := &latencyObjects{}
	if err := spec.LoadAndAssign(objs, nil); err != nil {
		return nil, fmt.Errorf("load latency objects: %w", err)
	}
	return objs, nil
}

// loadTxObjects loads the transaction pipeline from dir.
func loadTxObjects(dir string, tgid uint32, capacity int) (*txObjects, error) {
	spec, err := loadSpec(filepath.Join(dir, TxObject), capacity, map[string]any{
		"filter_tgid": tgid,
	})
	if err != nil {
		return nil, err
	}

	objs := &txObjects{}
	if err := spec.LoadAndAssign(objs, nil); err != nil {
		return nil, fmt.Errorf("load transaction objects: %w", err)
	}
	return objs, nil
}
