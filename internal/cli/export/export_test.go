package export

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otlpmetricsv1 "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	"google.golang.org/grpc"

	"github.com/seelabs/xrpl-probe/internal/cli/helpers"
	"github.com/seelabs/xrpl-probe/internal/config"
	"github.com/seelabs/xrpl-probe/internal/storage"
	"github.com/seelabs/xrpl-probe/internal/testutil"
)

func seed(t *testing.T) *helpers.GlobalFlags {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "perf.db")
	ctx := context.Background()

	store := testutil.OpenTestStore(t, db)
	defer store.Close() // nolint:errcheck

	start := time.Unix(1_700_000_000, 0)
	coll, err := store.AddCollection(ctx, "1a2b3c", start)
	require.NoError(t, err)
	require.NoError(t, store.RegisterProbes(ctx, []storage.Probe{{ID: 1, Description: "payment"}}))
	require.NoError(t, store.AddTimings(ctx, []storage.Timing{
		{CollectionID: coll.ID, ProbeID: 1, Timestamp: start.Unix() + 10, LogBin: 2, Counts: 3},
	}))
	require.NoError(t, store.FinishCollection(ctx, coll.ID, start.Add(20*time.Second)))

	return &helpers.GlobalFlags{
		ConfigPath: filepath.Join(dir, "config.yaml"),
		LogLevel:   "error",
		Database:   db,
		Driver:     config.DriverSQLite,
	}
}

func execute(t *testing.T, g *helpers.GlobalFlags, args ...string) (string, error) {
	t.Helper()
	args = append(args, "--db", g.Database, "--driver", g.Driver)
	cmd := NewExportCmd(g)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExportOTLP(t *testing.T) {
	g := seed(t)
	path := filepath.Join(t.TempDir(), "metrics.json")

	out, err := execute(t, g, "otlp", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "resourceMetrics")
	assert.Contains(t, string(data), "payment")
}

func TestExportProm(t *testing.T) {
	g := seed(t)

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, err := execute(t, g, "prom", "--url", srv.URL, "--job", "bench")
	require.NoError(t, err)
	assert.Contains(t, out, "Pushed")
	assert.EqualValues(t, 1, requests.Load())
}

func TestExportProm_RequiresURL(t *testing.T) {
	g := seed(t)
	_, err := execute(t, g, "prom")
	assert.ErrorContains(t, err, "--url")
}

type receiver struct {
	otlpmetricsv1.UnimplementedMetricsServiceServer
	requests atomic.Int32
}

func (r *receiver) Export(context.Context, *otlpmetricsv1.ExportMetricsServiceRequest) (*otlpmetricsv1.ExportMetricsServiceResponse, error) {
	r.requests.Add(1)
	return &otlpmetricsv1.ExportMetricsServiceResponse{}, nil
}

func TestExportOTLP_Endpoint(t *testing.T) {
	g := seed(t)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	recv := &receiver{}
	otlpmetricsv1.RegisterMetricsServiceServer(srv, recv)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	out, err := execute(t, g, "otlp", "--endpoint", lis.Addr().String(), "--insecure")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 data points")
	assert.EqualValues(t, 1, recv.requests.Load())
}

func TestExportOTLP_OutAndEndpointExclusive(t *testing.T) {
	g := seed(t)
	_, err := execute(t, g, "otlp", "--out", "x.json", "--endpoint", "localhost:4317")
	assert.Error(t, err)
}

func TestExportPprof(t *testing.T) {
	g := seed(t)
	path := filepath.Join(t.TempDir(), "latency.pb.gz")

	out, err := execute(t, g, "pprof", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
