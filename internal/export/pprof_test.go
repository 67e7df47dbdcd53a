package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	prof := Profile(testSummary())
	require.NoError(t, prof.CheckValid())

	require.Len(t, prof.Function, 1)
	assert.Equal(t, "payment", prof.Function[0].Name)

	// Bins 2 and 4 are populated across both slices.
	require.Len(t, prof.Sample, 2)
	assert.Equal(t, []int64{5, 20}, prof.Sample[0].Value)
	assert.Equal(t, []int64{4}, prof.Sample[0].NumLabel["bucket"])
	assert.Equal(t, []int64{1, 16}, prof.Sample[1].Value)
	assert.Equal(t, int64(200e9), prof.DurationNanos)
}

func TestWritePprof(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latency.pb.gz")
	require.NoError(t, WritePprof(path, testSummary()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() // nolint:errcheck

	prof, err := profile.Parse(f)
	require.NoError(t, err)
	assert.Len(t, prof.Sample, 2)
	assert.Equal(t, "latency", prof.DefaultSampleType)
}
