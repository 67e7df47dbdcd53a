// Package trace implements the 'xrpl-probe trace' and 'xrpl-probe simulate'
// commands.
package trace

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	agenttrace "github.com/seelabs/xrpl-probe/internal/agent/trace"
	"github.com/seelabs/xrpl-probe/internal/cli/helpers"
	"github.com/seelabs/xrpl-probe/internal/config"
	"github.com/seelabs/xrpl-probe/internal/privilege"
	"github.com/seelabs/xrpl-probe/internal/storage"
	"github.com/seelabs/xrpl-probe/internal/sys/proc"
)

// traceFlags are the command line overrides of config.TraceConfig.
type traceFlags struct {
	pid          int
	exe          string
	timeslice    time.Duration
	duration     time.Duration
	commit       string
	tags         []string
	probes       []string
	transactions bool
	txExit       string
	kernelFunc   string
	objects      string
	watch        bool
}

func (f *traceFlags) add(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVar(&f.pid, "pid", 0, "Trace only this process")
	fl.StringVar(&f.exe, "exe", "", "Path of the rippled executable")
	fl.DurationVar(&f.timeslice, "timeslice", 0, "Sampling period of the latency histograms")
	fl.DurationVar(&f.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	fl.StringVar(&f.commit, "commit", "", "Git commit of the traced build")
	fl.StringSliceVar(&f.tags, "tags", nil, "Tags stored with the collection")
	fl.StringSliceVar(&f.probes, "probes", nil, "Probes to attach (transactor, payment, offer_create)")
	fl.BoolVar(&f.transactions, "transactions", false, "Record every transaction")
	fl.StringVar(&f.txExit, "tx-exit", "", "Symbol ending a transaction; its arguments are id, type and result")
	fl.StringVar(&f.kernelFunc, "kernel-func", "", "Also measure a kernel function")
	fl.StringVar(&f.objects, "objects", "", "Directory holding the compiled BPF objects")
	fl.BoolVar(&f.watch, "watch", false, "Show live progress; console logs are limited to errors")

	_ = cmd.RegisterFlagCompletionFunc("probes", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, p := range agenttrace.Registry() {
			names = append(names, p.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

// apply copies the flags the user set onto t.
func (f *traceFlags) apply(cmd *cobra.Command, t *config.TraceConfig) {
	changed := cmd.Flags().Changed
	if changed("pid") {
		t.PID = f.pid
	}
	if changed("exe") {
		t.Executable = f.exe
	}
	if changed("timeslice") {
		t.Timeslice = f.timeslice
	}
	if changed("duration") {
		t.Duration = f.duration
	}
	if changed("commit") {
		t.Commit = f.commit
	}
	if changed("tags") {
		t.Tags = f.tags
	}
	if changed("probes") {
		t.Probes = f.probes
	}
	if changed("transactions") {
		t.Transactions = f.transactions
	}
	if changed("tx-exit") {
		t.TxExitSymbol = f.txExit
	}
	if changed("kernel-func") {
		t.KernelFunction = f.kernelFunc
	}
	if changed("objects") {
		t.ObjectDir = f.objects
	}
}

// NewTraceCmd creates the trace command.
func NewTraceCmd(g *helpers.GlobalFlags) *cobra.Command {
	var flags traceFlags

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Trace a running rippled and store latency histograms",
		Long: `Attach eBPF uprobes to rippled and record one collection.

Every timeslice the cumulative latency and result histograms of each probe are
read from the kernel, converted to per-slice counts and stored. With
--transactions every applied transaction is also stored with its id, type,
result and duration.

Examples:
  # Trace the running node for an hour
  xrpl-probe trace --pid $(pidof rippled) --commit 1a2b3c --duration 1h

  # Trace every rippled process started from a binary, with tags
  xrpl-probe trace --exe /opt/ripple/bin/rippled --commit 1a2b3c --tags bench,release`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.LoadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg.Trace)
			if cfg.Trace.Commit == "" {
				return fmt.Errorf("--commit is required")
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
			return runTrace(ctx, cmd, cfg, watching)
		},
	}

	flags.add(cmd)
	helpers.AddDatabaseFlags(cmd, g)
	return cmd
}

// watchable reports whether --watch was given and stdout is a terminal.
func (f *traceFlags) watchable(cmd *cobra.Command) bool {
	if !f.watch {
		return false
	}
	_, tty := helpers.TerminalWidth(cmd.OutOrStdout())
	return tty
}

func runTrace(ctx context.Context, cmd *cobra.Command, cfg *config.Config, watching bool) error {
	logger := helpers.NewLogger(cfg, "trace")
	t := cfg.Trace

	if t.PID > 0 {
		if !proc.Alive(ctx, t.PID) {
			return fmt.Errorf("pid %d: %w", t.PID, proc.ErrNoProcess)
		}
		if t.Executable == "" {
			exe, err := proc.Executable(ctx, t.PID)
			if err != nil {
				return err
			}
			t.Executable = exe
		}
	} else {
		pids, err := proc.FindByExecutable(ctx, t.Executable)
		if err != nil {
			logger.Warn().Err(err).Msg("No running process yet, probes fire once it starts")
		} else {
			logger.Info().Ints("pids", pids).Msg("Tracing every process of the executable")
		}
	}
	if t.Filter != "" {
		logger.Warn().Str("filter", t.Filter).Msg("Filter expressions apply to simulated probes only")
	}

	probes, err := agenttrace.SelectProbes(t.Probes, t.Transactions)
	if err != nil {
		return err
	}
	if t.KernelFunction != "" {
		probes = append(probes, agenttrace.KernelProbe(t.KernelFunction))
	}

	sources, closer, err := agenttrace.KernelSources(ctx, agenttrace.KernelConfig{
		ObjectDir:    t.ObjectDir,
		BinaryPath:   t.Executable,
		PID:          t.PID,
		Capacity:     t.TableCapacity,
		Band:         t.Band,
		Transactions: t.Transactions,
		TxExitSymbol: t.TxExitSymbol,
		EventBuffer:  t.EventBuffer,
		Logger:       logger,
	}, probes)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to detach probes")
		}
	}()

	return collect(ctx, cmd, cfg, logger, sources, watching)
}

// collect runs one collection over sources and prints its id.
func collect(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger zerolog.Logger, sources agenttrace.Sources, watching bool) error {
	store, err := helpers.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close() // nolint:errcheck

	runner, err := agenttrace.NewRunner(agenttrace.Config{
		Commit:    cfg.Trace.Commit,
		Tags:      cfg.Trace.Tags,
		Timeslice: cfg.Trace.Timeslice,
		Duration:  cfg.Trace.Duration,
		Band:      cfg.Trace.Band,
		Logger:    logger,
	}, store, sources)
	if err != nil {
		return err
	}

	var coll *storage.Collection
	run := func(ctx context.Context) error {
		var runErr error
		coll, runErr = runner.Run(ctx)
		return runErr
	}
	if watching {
		err = watch(ctx, cmd.OutOrStdout(), runner.Progress, run)
	} else {
		err = run(ctx)
	}
	if cerr := privilege.ChownToInvoker(databaseFiles(cfg)...); cerr != nil {
		logger.Warn().Err(cerr).Msg("Failed to hand the database back to the sudo user")
	}
	if coll != nil {
		printCollection(cmd, cfg, coll, runner.Totals())
	}
	return err
}

// databaseFiles lists the database and the journal files its driver creates.
func databaseFiles(cfg *config.Config) []string {
	p := cfg.Storage.Path
	if cfg.Storage.Driver == config.DriverSQLite {
		return []string{p, p + "-journal", p + "-wal", p + "-shm"}
	}
	return []string{p, p + ".wal"}
}

func printCollection(cmd *cobra.Command, cfg *config.Config, c *storage.Collection, totals agenttrace.Totals) {
	cmd.Printf("Collection %s stored in %s (%s)\n", c.ID, cfg.Storage.Path, cfg.Storage.Driver)
	cmd.Printf("  %d timing rows, %d result rows, %d transactions\n",
		totals.Timings, totals.Outcomes, totals.Transactions)
}
