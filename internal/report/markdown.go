package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders s as a Markdown document: one section per probe with its
// histogram and outcome tables.
func Markdown(s *Summary) string {
	var b strings.Builder
	c := s.Collection

	fmt.Fprintf(&b, "# Collection `%s`\n\n", c.ID)
	fmt.Fprintf(&b, "- **commit** `%s`\n", c.GitCommit)
	fmt.Fprintf(&b, "- **start** %s\n", formatUnix(c.Start))
	if c.End > 0 {
		fmt.Fprintf(&b, "- **end** %s\n", formatUnix(c.End))
	} else {
		b.WriteString("- **end** unfinished\n")
	}
	if len(s.Tags) > 0 {
		fmt.Fprintf(&b, "- **tags** %s\n", strings.Join(s.Tags, ", "))
	}

	for _, p := range s.Probes {
		fmt.Fprintf(&b, "\n## %s\n\n", p.Name)
		if total, ok := sliceStats(0, p.ID, histogramRows(p.Histogram)); ok {
			fmt.Fprintf(&b, "%d calls over %d timeslices, log2 µs mean %.2f, median %.0f, min %.0f, max %.0f.\n\n",
				total.Count, len(p.Slices), total.Mean, total.Median, total.Min, total.Max)
			histogramTable(&b, p.Histogram)
		}

		if hasOutcomes(p) {
			b.WriteString("\n| TER | Count |\n|---:|---:|\n")
			for i, n := range p.Outcomes {
				if n > 0 {
					fmt.Fprintf(&b, "| %d | %d |\n", i+MinTER, n)
				}
			}
			if p.OtherOutcomes > 0 {
				fmt.Fprintf(&b, "| other | %d |\n", p.OtherOutcomes)
			}
		}
	}

	if t := s.Transactions; t.Count > 0 {
		fmt.Fprintf(&b, "\n## Transactions\n\n%d transactions. By type: %s. By result: %s.\n\n",
			t.Count, formatCounts(t.ByType), formatCounts(t.ByTER))
		histogramTable(&b, t.Histogram)
	}
	return b.String()
}

func histogramTable(b *strings.Builder, hist []int64) {
	b.WriteString("| Bucket | Count |\n|---:|---:|\n")
	for i, n := range hist {
		if n > 0 {
			fmt.Fprintf(b, "| 2^%d µs | %d |\n", i, n)
		}
	}
}

func hasOutcomes(p ProbeSummary) bool {
	if p.OtherOutcomes > 0 {
		return true
	}
	for _, n := range p.Outcomes {
		if n > 0 {
			return true
		}
	}
	return false
}

// RenderMarkdown writes the Markdown report styled for a terminal of the
// given width. NO_COLOR selects the plain style.
func RenderMarkdown(w io.Writer, s *Summary, width int) error {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if os.Getenv("NO_COLOR") != "" {
		opts = append(opts, glamour.WithStylePath("notty"))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return err
	}
	out, err := r.Render(Markdown(s))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
