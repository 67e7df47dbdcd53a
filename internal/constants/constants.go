// Package constants defines shared paths and defaults.
package constants

import "time"

var (
	ConfigFile = "config.yaml"

	// DefaultDir is created under the user's home directory.
	DefaultDir = ".xrpl-probe"

	// DefaultDatabasePath is relative to the working directory.
	DefaultDatabasePath = "perf.duckdb"

	// DefaultObjectDir holds the compiled BPF objects.
	DefaultObjectDir = "/usr/local/lib/xrpl-probe/bpf"

	// DefaultExecutable is the traced binary when neither --exe nor --pid is given.
	DefaultExecutable = "/usr/local/bin/rippled"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "XRPL_PROBE_CONFIG"

// Collection defaults.
const (
	DefaultTimeslice = 10 * time.Minute

	// DefaultTableCapacity is the number of in-flight invocations tracked per
	// probe, equal to the default max_entries of a BPF hash map.
	DefaultTableCapacity = 10240

	// DefaultEventBuffer is the per-CPU perf buffer size in bytes.
	DefaultEventBuffer = 64 * 4096

	DefaultQueryTimeout = 30 * time.Second
)
