package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/seelabs/xrpl-probe/internal/storage"
)

const barWidth = 40

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))
)

// Render writes a human-readable report of s.
func Render(w io.Writer, s *Summary) error {
	var b strings.Builder

	renderCollection(&b, s)
	if len(s.Probes) == 0 && s.Transactions.Count == 0 {
		b.WriteString(warnStyle.Render("No samples stored for this collection."))
		b.WriteString("\n")
	}
	for _, p := range s.Probes {
		renderProbe(&b, p)
	}
	if s.Transactions.Count > 0 {
		renderTransactions(&b, s.Transactions)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderCollection(b *strings.Builder, s *Summary) {
	c := s.Collection
	b.WriteString(titleStyle.Render("Collection " + c.ID))
	b.WriteString("\n")
	field(b, "commit", c.GitCommit)
	field(b, "start", formatUnix(c.Start))
	if c.End > 0 {
		field(b, "end", formatUnix(c.End))
		field(b, "duration", (time.Duration(c.End-c.Start) * time.Second).String())
	} else {
		field(b, "end", warnStyle.Render("unfinished"))
	}
	if len(s.Tags) > 0 {
		field(b, "tags", strings.Join(s.Tags, ", "))
	}
	b.WriteString("\n")
}

func renderProbe(b *strings.Builder, p ProbeSummary) {
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (id %d)", p.Name, p.ID)))
	b.WriteString("\n")

	total, ok := sliceStats(0, p.ID, histogramRows(p.Histogram))
	if ok {
		field(b, "count", fmt.Sprintf("%d", total.Count))
		field(b, "log2 µs", fmt.Sprintf("mean %.2f  median %.0f  min %.0f  max %.0f",
			total.Mean, total.Median, total.Min, total.Max))
		field(b, "timeslices", fmt.Sprintf("%d", len(p.Slices)))
		b.WriteString("\n")
		bars(b, p.Histogram, func(i int) string { return fmt.Sprintf("2^%d µs", i) })
	}

	outcomes := make(map[int64]int64)
	for i, n := range p.Outcomes {
		if n > 0 {
			outcomes[int64(i+MinTER)] = n
		}
	}
	if len(outcomes) > 0 || p.OtherOutcomes > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("  outcomes"))
		b.WriteString("\n")
		codes := make([]int64, 0, len(outcomes))
		for code := range outcomes {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
		for _, code := range codes {
			fmt.Fprintf(b, "  %6d  %d\n", code, outcomes[code])
		}
		if p.OtherOutcomes > 0 {
			fmt.Fprintf(b, "  %6s  %d\n", "other", p.OtherOutcomes)
		}
	}
	b.WriteString("\n")
}

func renderTransactions(b *strings.Builder, t TxSummary) {
	b.WriteString(headerStyle.Render("transactions"))
	b.WriteString("\n")
	field(b, "count", fmt.Sprintf("%d", t.Count))
	field(b, "by type", formatCounts(t.ByType))
	field(b, "by result", formatCounts(t.ByTER))
	b.WriteString("\n")
	bars(b, t.Histogram, func(i int) string { return fmt.Sprintf("2^%d µs", i) })
	b.WriteString("\n")
}

func field(b *strings.Builder, name, value string) {
	b.WriteString(labelStyle.Render(fmt.Sprintf("  %-11s", name)))
	b.WriteString(value)
	b.WriteString("\n")
}

// bars draws the non-empty range of a histogram scaled to barWidth.
func bars(b *strings.Builder, hist []int64, label func(int) string) {
	first, last := -1, -1
	var peak int64
	for i, n := range hist {
		if n == 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		peak = max(peak, n)
	}
	if first < 0 {
		return
	}
	for i := first; i <= last; i++ {
		n := hist[i]
		width := int(n * barWidth / peak)
		if n > 0 && width == 0 {
			width = 1
		}
		fmt.Fprintf(b, "  %12s |%s %d\n",
			label(i),
			barStyle.Render(strings.Repeat("█", width)),
			n)
	}
}

func histogramRows(hist []int64) []storage.Timing {
	rows := make([]storage.Timing, 0, len(hist))
	for i, n := range hist {
		if n > 0 {
			rows = append(rows, storage.Timing{LogBin: int64(i), Counts: n})
		}
	}
	return rows
}

func formatCounts(m map[int64]int) string {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d:%d", k, m[k])
	}
	return strings.Join(parts, " ")
}

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
