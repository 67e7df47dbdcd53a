package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seelabs/xrpl-probe/internal/constants"
	"github.com/seelabs/xrpl-probe/internal/probe"
)

func TestLoader_MissingFileReturnsDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DriverDuckDB, cfg.Storage.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Trace.Timeslice)
	assert.Equal(t, probe.DefaultOutcomeBand, cfg.Trace.Band)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: sqlite3
  path: /var/lib/xrpl-probe/perf.db
trace:
  pid: 4242
  timeslice: 250ms
  tags: [testnet, nightly]
  band:
    start: 100
    end: 140
`), 0o600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/xrpl-probe/perf.db", cfg.Storage.Path)
	assert.Equal(t, 4242, cfg.Trace.PID)
	assert.Equal(t, 250*time.Millisecond, cfg.Trace.Timeslice)
	assert.Equal(t, []string{"testnet", "nightly"}, cfg.Trace.Tags)
	assert.Equal(t, probe.OutcomeBand{Start: 100, End: 140}, cfg.Trace.Band)
	// Untouched by the file.
	assert.Equal(t, constants.DefaultTableCapacity, cfg.Trace.TableCapacity)
	assert.Equal(t, 5, cfg.Storage.Retry.MaxRetries)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trace: [unclosed"), 0o600))

	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoader_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.Trace.Commit = "a1b2c3"
	cfg.Trace.Duration = 90 * time.Second
	cfg.Export.PromURL = "http://localhost:9090/api/v1/write"
	require.NoError(t, loader.Save(cfg))
	assert.FileExists(t, path)

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3", loaded.Trace.Commit)
	assert.Equal(t, 90*time.Second, loaded.Trace.Duration)
	assert.Equal(t, cfg.Export.PromURL, loaded.Export.PromURL)
	assert.Equal(t, cfg.Storage.Retry, loaded.Storage.Retry)
}

func TestNewLoader_EnvPath(t *testing.T) {
	t.Setenv(constants.EnvConfigPath, "/etc/xrpl-probe.yaml")
	assert.Equal(t, "/etc/xrpl-probe.yaml", NewLoader("").Path())
	assert.Equal(t, "/tmp/explicit.yaml", NewLoader("/tmp/explicit.yaml").Path())
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trace:\n  pid: 1\n"), 0o600))

	t.Setenv("XRPL_PROBE_PID", "77")
	t.Setenv("XRPL_PROBE_DB_DRIVER", "sqlite3")
	t.Setenv("XRPL_PROBE_TAGS", "a, b,,c")
	t.Setenv("XRPL_PROBE_DURATION", "2m")
	t.Setenv("XRPL_PROBE_TRANSACTIONS", "true")
	t.Setenv("XRPL_PROBE_LOG_LEVEL", "debug")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 77, cfg.Trace.PID)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Trace.Tags)
	assert.Equal(t, 2*time.Minute, cfg.Trace.Duration)
	assert.True(t, cfg.Trace.Transactions)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("XRPL_PROBE_TIMESLICE", "often")

	err := LoadFromEnv(DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XRPL_PROBE_TIMESLICE")
}
