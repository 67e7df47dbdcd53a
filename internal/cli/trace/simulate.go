package trace

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	agenttrace "github.com/seelabs/xrpl-probe/internal/agent/trace"
	"github.com/seelabs/xrpl-probe/internal/cli/helpers"
	"github.com/seelabs/xrpl-probe/internal/config"
	"github.com/seelabs/xrpl-probe/internal/probe"
)

type simulateFlags struct {
	workers int
	latency time.Duration
	pause   time.Duration
	limit   int
	seed    uint64
}

// NewSimulateCmd creates the simulate command.
func NewSimulateCmd(g *helpers.GlobalFlags) *cobra.Command {
	var (
		flags traceFlags
		sim   simulateFlags
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Record a collection from a synthetic in-process workload",
		Long: `Run the probe pipelines in process against generated transactions.

Concurrent workers apply synthetic payments and offers through the same
start-table, histogram and export code the kernel programs implement, and the
result is stored as a regular collection. Useful to check a database, report
or exporter without root or a running rippled.

Examples:
  xrpl-probe simulate --duration 30s --timeslice 5s --transactions
  xrpl-probe simulate --limit 1000 --workers 8 --db /tmp/sim.duckdb`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.LoadConfig()
			if err != nil {
				return err
			}
			cfg.Trace.Commit = "simulation"
			cfg.Trace.Timeslice = time.Second
			cfg.Trace.Duration = 10 * time.Second
			if sim.limit > 0 {
				cfg.Trace.Duration = 0
			}
			flags.apply(cmd, &cfg.Trace)
			if cfg.Trace.Transactions && cfg.Trace.TxExitSymbol == "" {
				cfg.Trace.TxExitSymbol = "simulated"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := helpers.SignalContext(cmd.Context())
			defer cancel()

			watching := flags.watchable(cmd)
			if watching {
				cfg.Logging.Level = "error"
			}
			return runSimulation(ctx, cmd, cfg, sim, watching)
		},
	}

	flags.add(cmd)
	fl := cmd.Flags()
	fl.IntVar(&sim.workers, "workers", 0, "Concurrent workers (default GOMAXPROCS)")
	fl.DurationVar(&sim.latency, "latency", 200*time.Microsecond, "Median apply time")
	fl.DurationVar(&sim.pause, "pause", time.Millisecond, "Pause between transactions of a worker")
	fl.IntVar(&sim.limit, "limit", 0, "Transactions per worker; the run ends when all are applied")
	fl.Uint64Var(&sim.seed, "seed", uint64(time.Now().UnixNano()), "Random seed")
	helpers.AddDatabaseFlags(cmd, g)
	return cmd
}

func runSimulation(ctx context.Context, cmd *cobra.Command, cfg *config.Config, f simulateFlags, watching bool) error {
	logger := helpers.NewLogger(cfg, "simulate")

	probes, err := agenttrace.SelectProbes(cfg.Trace.Probes, false)
	if err != nil {
		return err
	}

	filter := probe.ProcessFilter(uint32(os.Getpid()))
	if cfg.Trace.Filter != "" {
		expr, err := probe.CompileFilter(cfg.Trace.Filter)
		if err != nil {
			return err
		}
		filter = probe.AllOf(filter, expr)
	}

	sim, err := agenttrace.NewSimulation(agenttrace.SimulationConfig{
		Probes:       probes,
		Transactions: cfg.Trace.Transactions,
		Workers:      f.workers,
		MeanLatency:  f.latency,
		Pause:        f.pause,
		Limit:        f.limit,
		Capacity:     cfg.Trace.TableCapacity,
		Band:         cfg.Trace.Band,
		Filter:       filter,
		Seed:         f.seed,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	defer sim.Close() // nolint:errcheck

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	sources := sim.Sources()
	sources.Background = []agenttrace.Runnable{agenttrace.RunnableFunc(func(ctx context.Context) error {
		err := sim.Run(ctx)
		if f.limit > 0 {
			stop()
		}
		return err
	})}

	return collect(runCtx, cmd, cfg, logger, sources, watching)
}
