package config

import (
	"time"

	"github.com/seelabs/xrpl-probe/internal/logging"
	"github.com/seelabs/xrpl-probe/internal/probe"
	"github.com/seelabs/xrpl-probe/internal/retry"
)

// SchemaVersion is the current config file schema version.
const SchemaVersion = "1"

// Config is the on-disk configuration of xrpl-probe.
type Config struct {
	Version string         `yaml:"version"`
	Logging logging.Config `yaml:"logging"`
	Storage StorageConfig  `yaml:"storage"`
	Trace   TraceConfig    `yaml:"trace"`
	Export  ExportConfig   `yaml:"export"`
}

// StorageConfig selects the collection database.
type StorageConfig struct {
	// Driver is "duckdb" or "sqlite3".
	Driver string       `yaml:"driver" env:"XRPL_PROBE_DB_DRIVER"`
	Path   string       `yaml:"path" env:"XRPL_PROBE_DB"`
	Retry  retry.Config `yaml:"retry"`
}

// TraceConfig controls a collection run.
type TraceConfig struct {
	// PID restricts tracing to one process. Zero traces every process
	// running Executable.
	PID        int    `yaml:"pid" env:"XRPL_PROBE_PID"`
	Executable string `yaml:"executable" env:"XRPL_PROBE_EXE"`

	// Timeslice is the sampling period of the latency histograms.
	Timeslice time.Duration `yaml:"timeslice" env:"XRPL_PROBE_TIMESLICE"`
	// Duration stops the collection after the given time. Zero runs until
	// interrupted.
	Duration time.Duration `yaml:"duration" env:"XRPL_PROBE_DURATION"`

	// Commit identifies the build of the traced binary.
	Commit string   `yaml:"commit" env:"XRPL_PROBE_COMMIT"`
	Tags   []string `yaml:"tags" env:"XRPL_PROBE_TAGS"`

	// Probes lists the probe names to attach. Empty attaches all of them.
	Probes []string `yaml:"probes" env:"XRPL_PROBE_PROBES"`
	// Transactions enables the per-transaction event pipeline.
	Transactions bool `yaml:"transactions" env:"XRPL_PROBE_TRANSACTIONS"`
	// TxExitSymbol is the function whose first three arguments carry the
	// transaction type, result and id address.
	TxExitSymbol string `yaml:"tx_exit_symbol" env:"XRPL_PROBE_TX_EXIT"`

	// KernelFunction additionally measures the latency of a kernel function.
	KernelFunction string `yaml:"kernel_function" env:"XRPL_PROBE_KERNEL_FUNCTION"`

	// Filter is an optional CEL expression over pid and tgid.
	Filter string `yaml:"filter" env:"XRPL_PROBE_FILTER"`

	TableCapacity int               `yaml:"table_capacity" env:"XRPL_PROBE_TABLE_CAPACITY"`
	Band          probe.OutcomeBand `yaml:"band"`

	// ObjectDir holds latency.bpf.o and txevents.bpf.o.
	ObjectDir string `yaml:"object_dir" env:"XRPL_PROBE_OBJECTS"`
	// EventBuffer is the per-CPU perf buffer size in bytes.
	EventBuffer int `yaml:"event_buffer" env:"XRPL_PROBE_EVENT_BUFFER"`
}

// ExportConfig configures the metric exporters.
type ExportConfig struct {
	OTLPPath string `yaml:"otlp_path" env:"XRPL_PROBE_OTLP_PATH"`
	// OTLPEndpoint is the host:port of an OTLP/gRPC receiver.
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"XRPL_PROBE_OTLP_ENDPOINT"`
	OTLPInsecure bool   `yaml:"otlp_insecure" env:"XRPL_PROBE_OTLP_INSECURE"`

	PromURL string       `yaml:"prom_url" env:"XRPL_PROBE_PROM_URL"`
	PromJob string       `yaml:"prom_job" env:"XRPL_PROBE_PROM_JOB"`
	Retry   retry.Config `yaml:"retry"`
}
