package trace

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenttrace "github.com/seelabs/xrpl-probe/internal/agent/trace"
)

func TestWatchModel(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	current := agenttrace.Progress{}
	stopped := 0

	m := newWatchModel(func() agenttrace.Progress { return current }, func() { stopped++ })
	m.now = func() time.Time { return start.Add(90 * time.Second) }
	assert.Contains(t, m.View(), "(starting)")

	current = agenttrace.Progress{
		Collection:  "c-1",
		Started:     start,
		Slices:      9,
		Stored:      agenttrace.Totals{Timings: 40, Outcomes: 12, Transactions: 300},
		WriteErrors: 2,
	}
	model, cmd := m.Update(refreshMsg(start))
	require.NotNil(t, cmd)
	m = model.(watchModel)

	view := m.View()
	assert.Contains(t, view, "Collection c-1")
	assert.Contains(t, view, "1m30s")
	assert.Contains(t, view, "300")
	assert.Contains(t, view, "write errors")
	assert.Contains(t, view, "q to stop")

	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = model.(watchModel)
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = model.(watchModel)
	assert.Equal(t, 1, stopped)
	assert.Contains(t, m.View(), "finishing")

	model, cmd = m.Update(runDoneMsg{})
	m = model.(watchModel)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "finished")
	assert.NotContains(t, m.View(), "q to stop")
}

func TestWatchableRequiresTerminal(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	flags := traceFlags{watch: true}
	assert.False(t, flags.watchable(cmd))
}
