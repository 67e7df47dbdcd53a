package report

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seelabs/xrpl-probe/internal/cli/helpers"
	"github.com/seelabs/xrpl-probe/internal/config"
	"github.com/seelabs/xrpl-probe/internal/storage"
	"github.com/seelabs/xrpl-probe/internal/testutil"
)

const txID = "00112233445566778899AABBCCDDEEFF00112233445566778899AABBCCDDEEFF"

// seed writes one finished collection and returns the global flags pointing
// at its database.
func seed(t *testing.T) (*helpers.GlobalFlags, string) {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "perf.db")
	ctx := context.Background()

	store := testutil.OpenTestStore(t, db)
	defer store.Close() // nolint:errcheck

	start := time.Now().Add(-time.Minute).Truncate(time.Second)
	coll, err := store.AddCollection(ctx, "1a2b3c", start)
	require.NoError(t, err)
	require.NoError(t, store.RegisterProbes(ctx, []storage.Probe{{ID: 1, Description: "payment"}}))
	require.NoError(t, store.AddTags(ctx, coll.ID, []string{"bench"}))
	require.NoError(t, store.AddTimings(ctx, []storage.Timing{
		{CollectionID: coll.ID, ProbeID: 1, Timestamp: start.Unix() + 10, LogBin: 3, Counts: 4},
		{CollectionID: coll.ID, ProbeID: 1, Timestamp: start.Unix() + 10, LogBin: 5, Counts: 2},
	}))
	require.NoError(t, store.AddOutcomes(ctx, []storage.Outcome{
		{CollectionID: coll.ID, ProbeID: 1, Timestamp: start.Unix() + 10, TER: 0, Counts: 6},
	}))
	require.NoError(t, store.AddTransactions(ctx, []storage.Transaction{
		{CollectionID: coll.ID, ID: txID, Type: 0, Timestamp: start.Unix() + 5, Duration: 1500, TER: 0},
	}))
	require.NoError(t, store.FinishCollection(ctx, coll.ID, start.Add(30*time.Second)))

	return &helpers.GlobalFlags{
		ConfigPath: filepath.Join(dir, "config.yaml"),
		LogLevel:   "error",
		Database:   db,
		Driver:     config.DriverSQLite,
	}, coll.ID
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// newCmd builds a command whose --db/--driver defaults do not reset the
// seeded global flags.
func newCmd(g *helpers.GlobalFlags, build func(*helpers.GlobalFlags) *cobra.Command) (*cobra.Command, []string) {
	args := []string{"--db", g.Database, "--driver", g.Driver}
	return build(g), args
}

func TestReportCmd_JSON(t *testing.T) {
	g, id := seed(t)
	cmd, dbArgs := newCmd(g, NewReportCmd)

	out, err := run(t, cmd, append([]string{"-o", "json"}, dbArgs...)...)
	require.NoError(t, err)

	var got struct {
		Collection struct {
			ID string `json:"ID"`
		} `json:"collection"`
		Tags   []string `json:"tags"`
		Probes []struct {
			Name  string `json:"name"`
			Count int64  `json:"count"`
		} `json:"probes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, id, got.Collection.ID)
	assert.Equal(t, []string{"bench"}, got.Tags)
	require.Len(t, got.Probes, 1)
	assert.Equal(t, "payment", got.Probes[0].Name)
	assert.EqualValues(t, 6, got.Probes[0].Count)
}

func TestReportCmd_CSVSlices(t *testing.T) {
	g, _ := seed(t)
	cmd, dbArgs := newCmd(g, NewReportCmd)

	out, err := run(t, cmd, append([]string{"-o", "csv"}, dbArgs...)...)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "TIMESTAMP,PROBE,COUNT,MEAN,MEDIAN,MIN,MAX", lines[0])
}

func TestReportCmd_UnknownCollection(t *testing.T) {
	g, _ := seed(t)
	cmd, dbArgs := newCmd(g, NewReportCmd)

	_, err := run(t, cmd, append([]string{"missing"}, dbArgs...)...)
	assert.ErrorContains(t, err, "missing")
}

func TestReportCmd_RejectsFormat(t *testing.T) {
	g, _ := seed(t)
	cmd, dbArgs := newCmd(g, NewReportCmd)

	_, err := run(t, cmd, append([]string{"-o", "xml"}, dbArgs...)...)
	assert.ErrorContains(t, err, "unsupported format")
}

func TestCollectionsCmd(t *testing.T) {
	g, id := seed(t)

	cmd, dbArgs := newCmd(g, NewCollectionsCmd)
	out, err := run(t, cmd, append([]string{"--since", "1h"}, dbArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "1a2b3c")
	assert.Contains(t, out, "30s")

	cmd, dbArgs = newCmd(g, NewCollectionsCmd)
	out, err = run(t, cmd, append([]string{"--tag", "other"}, dbArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "No collections found")
}

func TestTxCmd(t *testing.T) {
	g, id := seed(t)

	cmd, dbArgs := newCmd(g, NewTxCmd)
	out, err := run(t, cmd, append([]string{strings.ToLower(txID), "-o", "json"}, dbArgs...)...)
	require.NoError(t, err)

	var rows []txRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].Collection)
	assert.Equal(t, "1.5µs", rows[0].Duration)

	cmd, dbArgs = newCmd(g, NewTxCmd)
	_, err = run(t, cmd, append([]string{"abc"}, dbArgs...)...)
	assert.ErrorContains(t, err, "64 hex characters")
}

func TestReportCmd_MarkdownToPipe(t *testing.T) {
	g, id := seed(t)
	cmd, dbArgs := newCmd(g, NewReportCmd)

	out, err := run(t, cmd, append([]string{"-o", "markdown"}, dbArgs...)...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Collection `"+id+"`"))
	assert.Contains(t, out, "| 2^3 µs | 4 |")
}
