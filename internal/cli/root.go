// Package cli assembles the xrpl-probe command tree.
package cli

import (
	"github.com/spf13/cobra"

	configcmd "github.com/seelabs/xrpl-probe/internal/cli/config"
	exportcmd "github.com/seelabs/xrpl-probe/internal/cli/export"
	"github.com/seelabs/xrpl-probe/internal/cli/helpers"
	reportcmd "github.com/seelabs/xrpl-probe/internal/cli/report"
	tracecmd "github.com/seelabs/xrpl-probe/internal/cli/trace"
	"github.com/seelabs/xrpl-probe/pkg/version"
)

// NewRootCmd builds the root command with every subcommand.
func NewRootCmd() *cobra.Command {
	g := &helpers.GlobalFlags{}

	root := &cobra.Command{
		Use:   "xrpl-probe",
		Short: "Latency and result histograms of a running rippled",
		Long: `Measure where a rippled node spends its time without rebuilding it.

eBPF uprobes on the transactor and the per-type apply functions record log2
latency histograms and result codes in the kernel. Every timeslice they are
sampled into a local database as one collection per run, tagged with the git
commit of the traced build, so runs of different builds can be compared.

Commands:
- trace:       attach to rippled and record a collection
- simulate:    record a collection from a synthetic in-process workload
- report:      summarize a collection
- collections: list collections
- export:      convert a collection to OTLP or Prometheus metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.AddFlags(root.PersistentFlags())

	root.AddCommand(tracecmd.NewTraceCmd(g))
	root.AddCommand(tracecmd.NewSimulateCmd(g))
	root.AddCommand(reportcmd.NewReportCmd(g))
	root.AddCommand(reportcmd.NewCollectionsCmd(g))
	root.AddCommand(reportcmd.NewTxCmd(g))
	root.AddCommand(exportcmd.NewExportCmd(g))
	root.AddCommand(configcmd.NewConfigCmd(g))
	root.AddCommand(newCapabilitiesCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if format == string(helpers.FormatJSON) {
				f, err := helpers.NewFormatter(helpers.FormatJSON)
				if err != nil {
					return err
				}
				return f.Format(info, cmd.OutOrStdout())
			}
			cmd.Println(info.String())
			return nil
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatText, []helpers.OutputFormat{
		helpers.FormatText,
		helpers.FormatJSON,
	})
	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
