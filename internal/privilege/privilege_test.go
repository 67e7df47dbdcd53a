package privilege

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRoot(t *testing.T) {
	assert.Equal(t, os.Geteuid() == 0, IsRoot())
}

func TestUnderSudo(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	assert.False(t, UnderSudo())

	t.Setenv("SUDO_USER", "alice")
	assert.True(t, UnderSudo())
}

func TestDetectInvoker(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)

	tests := []struct {
		name    string
		user    string
		uid     string
		gid     string
		wantErr string
		wantUID int
	}{
		{name: "no sudo", wantUID: os.Getuid()},
		{name: "sudo", user: current.Username, uid: "1234", gid: "5678", wantUID: 1234},
		{name: "missing uid", user: "alice", gid: "1", wantErr: "SUDO_UID"},
		{name: "bad gid", user: "alice", uid: "1", gid: "x", wantErr: "invalid SUDO_GID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SUDO_USER", tt.user)
			t.Setenv("SUDO_UID", tt.uid)
			t.Setenv("SUDO_GID", tt.gid)

			inv, err := DetectInvoker()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUID, inv.UID)
			assert.NotEmpty(t, inv.Username)
		})
	}
}

func TestHomeDir_Sudo(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)

	t.Setenv("SUDO_USER", current.Username)
	t.Setenv("SUDO_UID", "1000")
	t.Setenv("SUDO_GID", "1000")

	home, err := HomeDir()
	require.NoError(t, err)
	assert.Equal(t, current.HomeDir, home)
}

func TestChownToInvoker_NoopWithoutSudo(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	path := filepath.Join(t.TempDir(), "perf.duckdb")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	assert.NoError(t, ChownToInvoker(path, path+".wal"))
}

func TestChownToInvoker_SkipsMissing(t *testing.T) {
	if !IsRoot() {
		t.Skip("requires root")
	}
	t.Setenv("SUDO_USER", "root")
	t.Setenv("SUDO_UID", "0")
	t.Setenv("SUDO_GID", "0")

	dir := t.TempDir()
	path := filepath.Join(dir, "perf.duckdb")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	assert.NoError(t, ChownToInvoker(path, filepath.Join(dir, "missing")))
}
