package helpers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalWidth_NotATerminal(t *testing.T) {
	width, tty := TerminalWidth(&bytes.Buffer{})
	assert.False(t, tty)
	assert.Equal(t, DefaultWidth, width)

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close() // nolint:errcheck

	_, tty = TerminalWidth(f)
	assert.False(t, tty)
}
