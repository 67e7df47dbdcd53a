// Package ebpf runs the latency and transaction pipelines inside the kernel.
//
// The BPF programs under bpf/ are compiled ahead of time (see bpf/Makefile)
// and loaded at runtime from an object directory. Each collector rewrites the
// filter_tgid constant, sizes the start table, attaches its programs through
// the uprobe package and exposes the same read interface as the in-process
// probes: LatencyCollector returns cumulative histograms, TxCollector hands
// out decoded transaction events.
package ebpf
