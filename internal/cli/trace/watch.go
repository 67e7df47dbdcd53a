package trace

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	agenttrace "github.com/seelabs/xrpl-probe/internal/agent/trace"
)

const refreshInterval = 500 * time.Millisecond

var (
	watchTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	watchLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	watchWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	watchHelp  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

type refreshMsg time.Time

// runDoneMsg is sent once the runner returned.
type runDoneMsg struct{}

// watchModel shows the progress of a running collection.
type watchModel struct {
	progress func() agenttrace.Progress
	stop     context.CancelFunc
	now      func() time.Time

	spinner  spinner.Model
	last     agenttrace.Progress
	stopping bool
	done     bool
}

func newWatchModel(progress func() agenttrace.Progress, stop context.CancelFunc) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return watchModel{
		progress: progress,
		stop:     stop,
		now:      time.Now,
		spinner:  s,
		last:     progress(),
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// Init starts the spinner and the refresh ticker.
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refresh())
}

// Update handles messages and updates the model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.stopping {
				m.stopping = true
				m.stop()
			}
		}
		return m, nil

	case refreshMsg:
		m.last = m.progress()
		return m, refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case runDoneMsg:
		m.done = true
		m.last = m.progress()
		return m, tea.Quit
	}
	return m, nil
}

// View renders the model.
func (m watchModel) View() string {
	var b strings.Builder
	p := m.last

	status := m.spinner.View() + " collecting"
	switch {
	case m.done:
		status = "✓ finished"
	case m.stopping:
		status = m.spinner.View() + " finishing"
	}

	id := p.Collection
	if id == "" {
		id = "(starting)"
	}
	b.WriteString(watchTitle.Render("Collection "+id) + "  " + status + "\n")

	elapsed := time.Duration(0)
	if !p.Started.IsZero() {
		elapsed = m.now().Sub(p.Started).Truncate(time.Second)
	}
	row := func(name string, value any) {
		fmt.Fprintf(&b, "%s %v\n", watchLabel.Render(fmt.Sprintf("  %-13s", name)), value)
	}
	row("elapsed", elapsed)
	row("timeslices", p.Slices)
	row("timing rows", p.Stored.Timings)
	row("result rows", p.Stored.Outcomes)
	row("transactions", p.Stored.Transactions)
	if p.WriteErrors > 0 {
		row("write errors", watchWarn.Render(fmt.Sprint(p.WriteErrors)))
	}

	if !m.done {
		b.WriteString("\n" + watchHelp.Render("q to stop") + "\n")
	}
	return b.String()
}

// watch runs the view on out until run returns.
func watch(ctx context.Context, out io.Writer, progress func() agenttrace.Progress, run func(context.Context) error) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	p := tea.NewProgram(newWatchModel(progress, stop),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	)

	errc := make(chan error, 1)
	go func() {
		errc <- run(runCtx)
		p.Send(runDoneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		stop()
		runErr := <-errc
		if runErr != nil {
			return runErr
		}
		return fmt.Errorf("watch view failed: %w", err)
	}
	return <-errc
}
