// Package report implements the commands reading stored collections.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seelabs/xrpl-probe/internal/cli/helpers"
	"github.com/seelabs/xrpl-probe/internal/report"
	"github.com/seelabs/xrpl-probe/internal/storage"
)

var reportFormats = []helpers.OutputFormat{
	helpers.FormatText,
	helpers.FormatMarkdown,
	helpers.FormatJSON,
	helpers.FormatYAML,
	helpers.FormatTable,
	helpers.FormatCSV,
}

// NewReportCmd creates the report command.
func NewReportCmd(g *helpers.GlobalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report [collection-id]",
		Short: "Summarize a stored collection",
		Long: `Print the latency and result histograms of a collection.

Without an id the most recently started collection is used. Text output draws
the histograms; markdown is styled when printed to a terminal and raw
otherwise; table and csv print one row per probe and timeslice with the mean,
median, min and max in log2 microseconds.

Examples:
  xrpl-probe report
  xrpl-probe report 6f1c... -o json
  xrpl-probe report -o csv > slices.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, reportFormats); err != nil {
				return err
			}
			cfg, err := g.LoadConfig()
			if err != nil {
				return err
			}
			logger := helpers.NewLogger(cfg, "report")

			store, err := helpers.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close() // nolint:errcheck

			var id string
			if len(args) == 1 {
				id = args[0]
			}
			summary, err := report.Load(cmd.Context(), store, id)
			if err != nil {
				return err
			}

			switch helpers.OutputFormat(format) {
			case helpers.FormatText:
				return report.Render(cmd.OutOrStdout(), summary)
			case helpers.FormatMarkdown:
				w := cmd.OutOrStdout()
				if width, tty := helpers.TerminalWidth(w); tty {
					return report.RenderMarkdown(w, summary, width)
				}
				_, err := io.WriteString(w, report.Markdown(summary))
				return err
			case helpers.FormatTable, helpers.FormatCSV:
				return output(cmd, format, summary.Slices())
			default:
				return output(cmd, format, summary)
			}
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatText, reportFormats)
	helpers.AddDatabaseFlags(cmd, g)
	return cmd
}

// collectionRow is one line of the collections listing.
type collectionRow struct {
	ID       string   `json:"id" yaml:"id" header:"ID"`
	Commit   string   `json:"commit" yaml:"commit" header:"COMMIT"`
	Start    string   `json:"start" yaml:"start" header:"START"`
	Duration string   `json:"duration" yaml:"duration" header:"DURATION"`
	Tags     []string `json:"tags" yaml:"tags" header:"TAGS"`
}

var listFormats = []helpers.OutputFormat{
	helpers.FormatTable,
	helpers.FormatJSON,
	helpers.FormatYAML,
	helpers.FormatCSV,
}

// NewCollectionsCmd creates the collections command.
func NewCollectionsCmd(g *helpers.GlobalFlags) *cobra.Command {
	var (
		format string
		tf     helpers.TimeFlags
		tag    string
	)

	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"ls"},
		Short:   "List stored collections",
		Example: `  xrpl-probe collections --since 24h
  xrpl-probe collections --tag release -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, listFormats); err != nil {
				return err
			}
			window, err := tf.Parse()
			if err != nil {
				return err
			}
			cfg, err := g.LoadConfig()
			if err != nil {
				return err
			}
			logger := helpers.NewLogger(cfg, "report")

			store, err := helpers.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close() // nolint:errcheck

			colls, err := store.Collections(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([]collectionRow, 0, len(colls))
			for _, c := range colls {
				if !window.Contains(c.Start) {
					continue
				}
				tags, err := store.Tags(cmd.Context(), c.ID)
				if err != nil {
					return err
				}
				if tag != "" && !contains(tags, tag) {
					continue
				}
				rows = append(rows, newCollectionRow(c, tags))
			}

			if len(rows) == 0 && helpers.OutputFormat(format) == helpers.FormatTable {
				cmd.Println("No collections found")
				return nil
			}
			return output(cmd, format, rows)
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, listFormats)
	tf.AddFlags(cmd.Flags())
	cmd.Flags().StringVar(&tag, "tag", "", "Only collections carrying this tag")
	helpers.AddDatabaseFlags(cmd, g)
	return cmd
}

func newCollectionRow(c storage.Collection, tags []string) collectionRow {
	row := collectionRow{
		ID:       c.ID,
		Commit:   c.GitCommit,
		Start:    time.Unix(c.Start, 0).UTC().Format(time.RFC3339),
		Duration: "running",
		Tags:     tags,
	}
	if c.End > 0 {
		row.Duration = (time.Duration(c.End-c.Start) * time.Second).String()
	}
	return row
}

// txRow is one recorded occurrence of a transaction.
type txRow struct {
	Collection string `json:"collection" yaml:"collection" header:"COLLECTION"`
	Type       int64  `json:"type" yaml:"type" header:"TYPE"`
	TER        int64  `json:"ter" yaml:"ter" header:"TER"`
	Duration   string `json:"duration" yaml:"duration" header:"DURATION"`
	Timestamp  string `json:"timestamp" yaml:"timestamp" header:"TIMESTAMP"`
}

// NewTxCmd creates the tx command.
func NewTxCmd(g *helpers.GlobalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tx <transaction-id>",
		Short: "Show every recorded application of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, listFormats); err != nil {
				return err
			}
			id := strings.ToUpper(args[0])
			if len(id) != 64 {
				return fmt.Errorf("transaction id must be 64 hex characters, got %d", len(id))
			}

			cfg, err := g.LoadConfig()
			if err != nil {
				return err
			}
			logger := helpers.NewLogger(cfg, "report")

			store, err := helpers.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close() // nolint:errcheck

			txs, err := store.Transaction(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				return fmt.Errorf("transaction %s was not recorded", id)
			}

			rows := make([]txRow, len(txs))
			for i, tx := range txs {
				rows[i] = txRow{
					Collection: tx.CollectionID,
					Type:       tx.Type,
					TER:        tx.TER,
					Duration:   time.Duration(tx.Duration).String(),
					Timestamp:  time.Unix(tx.Timestamp, 0).UTC().Format(time.RFC3339),
				}
			}
			return output(cmd, format, rows)
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, listFormats)
	helpers.AddDatabaseFlags(cmd, g)
	return cmd
}

func output(cmd *cobra.Command, format string, data any) error {
	f, err := helpers.NewFormatter(helpers.OutputFormat(format))
	if err != nil {
		return err
	}
	return f.Format(data, cmd.OutOrStdout())
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
