package trace

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seelabs/xrpl-probe/internal/cli/helpers"
	"github.com/seelabs/xrpl-probe/internal/config"
	"github.com/seelabs/xrpl-probe/internal/testutil"
)

func TestTraceFlags_ApplyOnlyChanged(t *testing.T) {
	var flags traceFlags
	cmd := &cobra.Command{Use: "trace"}
	flags.add(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--pid", "42",
		"--timeslice", "5s",
		"--tags", "bench,release",
		"--transactions",
		"--tx-exit", "apply_done",
	}))

	tc := config.DefaultConfig().Trace
	tc.Commit = "abc"
	flags.apply(cmd, &tc)

	assert.Equal(t, 42, tc.PID)
	assert.Equal(t, 5*time.Second, tc.Timeslice)
	assert.Equal(t, []string{"bench", "release"}, tc.Tags)
	assert.True(t, tc.Transactions)
	assert.Equal(t, "apply_done", tc.TxExitSymbol)
	assert.Equal(t, "abc", tc.Commit)
	assert.Equal(t, config.DefaultConfig().Trace.Executable, tc.Executable)
}

func TestNewTraceCmd_RequiresCommit(t *testing.T) {
	g := &helpers.GlobalFlags{ConfigPath: filepath.Join(t.TempDir(), "config.yaml")}
	cmd := NewTraceCmd(g)
	cmd.SetArgs([]string{"--pid", "1"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "--commit is required")
}

func TestNewSimulateCmd_StoresCollection(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "sim.db")
	g := &helpers.GlobalFlags{ConfigPath: filepath.Join(dir, "config.yaml"), LogLevel: "error"}

	cmd := NewSimulateCmd(g)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"--db", db,
		"--driver", config.DriverSQLite,
		"--limit", "50",
		"--workers", "2",
		"--latency", "20us",
		"--pause", "0s",
		"--transactions",
		"--seed", "7",
		"--tags", "sim",
	})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Collection ")

	store := testutil.OpenTestStore(t, db)

	coll, err := store.LatestCollection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "simulation", coll.GitCommit)
	assert.NotZero(t, coll.End)

	tags, err := store.Tags(context.Background(), coll.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"sim"}, tags)

	timings, err := store.Timings(context.Background(), coll.ID)
	require.NoError(t, err)
	var total int64
	for _, tm := range timings {
		total += tm.Counts
	}
	assert.Positive(t, total)

	txs, err := store.Transactions(context.Background(), coll.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 100)
}
