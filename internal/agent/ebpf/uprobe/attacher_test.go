//go:build linux

package uprobe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBinary(t *testing.T) {
	path, err := AttachConfig{BinaryPath: "/usr/local/bin/rippled", PID: 42}.ResolveBinary()
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/rippled", path)

	path, err = AttachConfig{PID: 42}.ResolveBinary()
	require.NoError(t, err)
	assert.Equal(t, "/proc/42/exe", path)

	_, err = AttachConfig{}.ResolveBinary()
	assert.Error(t, err)
}

func TestAttach_RequiresPrograms(t *testing.T) {
	_, err := Attach(AttachConfig{BinaryPath: "/bin/true", EntrySymbol: "main"}, nil, nil)
	assert.Error(t, err)

	_, err = AttachKernel(KernelAttachConfig{Symbol: "do_sys_openat2"}, nil, nil)
	assert.Error(t, err)
}

func TestAttachResult_CloseNil(t *testing.T) {
	var r *AttachResult
	assert.NoError(t, r.Close())
	assert.NoError(t, (&AttachResult{}).Close())
}
