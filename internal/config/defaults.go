package config

import (
	"github.com/seelabs/xrpl-probe/internal/constants"
	"github.com/seelabs/xrpl-probe/internal/logging"
	"github.com/seelabs/xrpl-probe/internal/probe"
	"github.com/seelabs/xrpl-probe/internal/retry"
)

// Storage drivers.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite3"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: SchemaVersion,
		Logging: logging.DefaultConfig(),
		Storage: StorageConfig{
			Driver: DriverDuckDB,
			Path:   constants.DefaultDatabasePath,
			Retry:  retry.DefaultConfig(),
		},
		Trace: TraceConfig{
			Executable:    constants.DefaultExecutable,
			Timeslice:     constants.DefaultTimeslice,
			TableCapacity: constants.DefaultTableCapacity,
			Band:          probe.DefaultOutcomeBand,
			ObjectDir:     constants.DefaultObjectDir,
			EventBuffer:   constants.DefaultEventBuffer,
		},
		Export: ExportConfig{
			PromJob: "xrpl-probe",
			Retry:   retry.DefaultConfig(),
		},
	}
}
