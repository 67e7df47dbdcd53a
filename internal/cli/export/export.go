// Package export implements the 'xrpl-probe export' commands.
package export

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seelabs/xrpl-probe/internal/cli/helpers"
	"github.com/seelabs/xrpl-probe/internal/config"
	"github.com/seelabs/xrpl-probe/internal/export"
	"github.com/seelabs/xrpl-probe/internal/report"
)

// NewExportCmd creates the export command and its subcommands.
func NewExportCmd(g *helpers.GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a collection as metrics",
		Long: `Convert a stored collection to metrics.

The latency histograms become exponential-bound histograms in microseconds and
the result counters become sums, one point per timeslice. The pprof format
gives the per-probe latency totals to 'go tool pprof'.`,
	}

	cmd.AddCommand(newOTLPCmd(g))
	cmd.AddCommand(newPromCmd(g))
	cmd.AddCommand(newPprofCmd(g))
	return cmd
}

func newOTLPCmd(g *helpers.GlobalFlags) *cobra.Command {
	var (
		out      string
		endpoint string
		insecure bool
	)

	cmd := &cobra.Command{
		Use:   "otlp [collection-id]",
		Short: "Write a collection as OTLP JSON metrics or push it over OTLP/gRPC",
		Long: `Write a collection as OTLP JSON metrics, or send it to an OTLP/gRPC
receiver such as the OpenTelemetry Collector when --endpoint (or
export.otlp_endpoint) is set.`,
		Example: `  xrpl-probe export otlp --out metrics.json
  xrpl-probe export otlp 6f1c... --out /tmp/run.json
  xrpl-probe export otlp --endpoint localhost:4317 --insecure`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, summary, err := load(cmd.Context(), g, args)
			if err != nil {
				return err
			}

			if endpoint == "" && out == "" {
				endpoint = cfg.Export.OTLPEndpoint
			}
			if endpoint != "" {
				return push(cmd, cfg, summary, endpoint, insecure || cfg.Export.OTLPInsecure)
			}

			path := out
			if path == "" {
				path = cfg.Export.OTLPPath
			}
			if path == "" {
				path = "metrics.json"
			}
			if err := export.WriteOTLP(path, summary); err != nil {
				return err
			}
			cmd.Printf("Wrote collection %s to %s\n", summary.Collection.ID, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (default export.otlp_path or metrics.json)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "OTLP/gRPC receiver host:port (default export.otlp_endpoint)")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "Connect to the receiver without TLS")
	cmd.MarkFlagsMutuallyExclusive("out", "endpoint")
	helpers.AddDatabaseFlags(cmd, g)
	return cmd
}

func push(cmd *cobra.Command, cfg *config.Config, summary *report.Summary, endpoint string, insecure bool) error {
	p, err := export.NewGRPCPusher(export.GRPCConfig{
		Endpoint: endpoint,
		Insecure: insecure,
		Retry:    cfg.Export.Retry,
		Logger:   helpers.NewLogger(cfg, "export"),
	})
	if err != nil {
		return err
	}
	defer p.Close() // nolint:errcheck

	n, err := p.Push(cmd.Context(), summary)
	if err != nil {
		return err
	}
	cmd.Printf("Exported %d data points of collection %s to %s\n", n, summary.Collection.ID, endpoint)
	return nil
}

func newPromCmd(g *helpers.GlobalFlags) *cobra.Command {
	var url, job string

	cmd := &cobra.Command{
		Use:     "prom [collection-id]",
		Short:   "Push a collection to a Prometheus remote-write endpoint",
		Example: `  xrpl-probe export prom --url http://localhost:9090/api/v1/write`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, summary, err := load(cmd.Context(), g, args)
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Export.PromURL
			}
			if url == "" {
				return fmt.Errorf("--url or export.prom_url is required")
			}
			if job == "" {
				job = cfg.Export.PromJob
			}

			w, err := export.NewPromWriter(export.PromConfig{
				URL:    url,
				Job:    job,
				Retry:  cfg.Export.Retry,
				Logger: helpers.NewLogger(cfg, "export"),
			})
			if err != nil {
				return err
			}
			n, err := w.Write(cmd.Context(), summary)
			if err != nil {
				return err
			}
			cmd.Printf("Pushed %d series of collection %s\n", n, summary.Collection.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Remote write URL (default export.prom_url)")
	cmd.Flags().StringVar(&job, "job", "", "Value of the job label (default export.prom_job)")
	helpers.AddDatabaseFlags(cmd, g)
	return cmd
}

func newPprofCmd(g *helpers.GlobalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "pprof [collection-id]",
		Short: "Write a collection's latency histograms as a pprof profile",
		Example: `  xrpl-probe export pprof --out latency.pb.gz
  go tool pprof -tagfocus=bucket=1024microseconds: latency.pb.gz`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, summary, err := load(cmd.Context(), g, args)
			if err != nil {
				return err
			}
			if err := export.WritePprof(out, summary); err != nil {
				return err
			}
			cmd.Printf("Wrote collection %s to %s\n", summary.Collection.ID, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "latency.pb.gz", "Output file")
	helpers.AddDatabaseFlags(cmd, g)
	return cmd
}

// load reads the configuration and summarizes the selected collection.
func load(ctx context.Context, g *helpers.GlobalFlags, args []string) (*config.Config, *report.Summary, error) {
	cfg, err := g.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := helpers.NewLogger(cfg, "export")

	store, err := helpers.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close() // nolint:errcheck

	var id string
	if len(args) == 1 {
		id = args[0]
	}
	summary, err := report.Load(ctx, store, id)
	if err != nil {
		return nil, nil, err
	}
	return cfg, summary, nil
}
