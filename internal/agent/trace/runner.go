package trace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seelabs/xrpl-probe/internal/constants"
	"github.com/seelabs/xrpl-probe/internal/probe"
	"github.com/seelabs/xrpl-probe/internal/storage"
)

// DefaultEventInterval is how often transaction events are drained.
const DefaultEventInterval = time.Second

// Config controls a collection run.
type Config struct {
	Commit string
	Tags   []string

	// Timeslice is the latency sampling period.
	Timeslice time.Duration
	// EventInterval is the transaction drain period.
	EventInterval time.Duration
	// Duration ends the run; zero runs until the context is done.
	Duration time.Duration

	Band   probe.OutcomeBand
	Logger zerolog.Logger

	// Now is the wall clock; time.Now when nil.
	Now func() time.Time
}

// Runner samples its sources into one collection of the store.
type Runner struct {
	cfg     Config
	store   *storage.Store
	sources Sources
	logger  zerolog.Logger

	sampler    *Sampler
	collection *storage.Collection
	lost       uint64

	mu          sync.Mutex
	started     time.Time
	slices      int
	writeErrors uint64
	stored      Totals
}

// Totals counts the rows a run stored.
type Totals struct {
	Timings      int
	Outcomes     int
	Transactions int
}

// Progress is a snapshot of a running collection.
type Progress struct {
	Collection  string
	Started     time.Time
	Slices      int
	Stored      Totals
	WriteErrors uint64
}

// NewRunner checks the configuration and returns a runner.
func NewRunner(cfg Config, store *storage.Store, sources Sources) (*Runner, error) {
	if store == nil {
		return nil, errors.New("trace: store is required")
	}
	if cfg.Commit == "" {
		return nil, errors.New("trace: commit is required")
	}
	if cfg.Timeslice <= 0 {
		return nil, fmt.Errorf("trace: timeslice must be positive, got %s", cfg.Timeslice)
	}
	if len(sources.Latency) == 0 && sources.Events == nil {
		return nil, errors.New("trace: no sources")
	}
	if cfg.EventInterval <= 0 {
		cfg.EventInterval = DefaultEventInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Band.End <= cfg.Band.Start {
		cfg.Band = probe.DefaultOutcomeBand
	}

	return &Runner{
		cfg:     cfg,
		store:   store,
		sources: sources,
		logger:  cfg.Logger.With().Str("component", "trace").Logger(),
	}, nil
}

// Run creates the collection, samples until ctx is done or the configured
// duration elapses, and finalizes the collection. The finalized collection
// is returned even when a source failed.
func (r *Runner) Run(ctx context.Context) (*storage.Collection, error) {
	coll, err := r.store.AddCollection(ctx, r.cfg.Commit, r.cfg.Now())
	if err != nil {
		return nil, err
	}
	r.collection = coll
	r.sampler = NewSampler(coll.ID, r.cfg.Band)
	r.mu.Lock()
	r.started = time.Unix(coll.Start, 0)
	r.mu.Unlock()

	probes := make([]Probe, 0, len(r.sources.Latency))
	for _, b := range r.sources.Latency {
		probes = append(probes, b.Probe)
	}
	if err := r.store.RegisterProbes(ctx, probeRows(probes)); err != nil {
		return nil, err
	}
	if err := r.store.AddTags(ctx, coll.ID, r.cfg.Tags); err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("collection", coll.ID).
		Str("commit", r.cfg.Commit).
		Int("probes", len(probes)).
		Bool("transactions", r.sources.Events != nil).
		Dur("timeslice", r.cfg.Timeslice).
		Msg("Collection started")

	runCtx := ctx
	if r.cfg.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(runCtx)
	for _, src := range r.runnables() {
		g.Go(func() error { return src.Run(gctx) })
	}
	g.Go(func() error {
		r.loop(gctx)
		return nil
	})
	runErr := g.Wait()

	// Flush and finalize even when ctx is already done.
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultQueryTimeout)
	defer cancel()

	r.sample(finalCtx)
	r.drainEvents(finalCtx)

	end := r.cfg.Now()
	if err := r.store.FinishCollection(finalCtx, coll.ID, end); err != nil {
		return coll, errors.Join(runErr, err)
	}
	coll.End = end.Unix()

	r.logStats()
	totals := r.Totals()
	r.logger.Info().
		Str("collection", coll.ID).
		Int("timings", totals.Timings).
		Int("outcomes", totals.Outcomes).
		Int("transactions", totals.Transactions).
		Msg("Collection finished")

	return coll, runErr
}

// Totals returns the rows stored so far.
func (r *Runner) Totals() Totals {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stored
}

// Progress returns the state of the run. It is safe to call while Run is
// in progress; the collection id is empty until the collection exists.
func (r *Runner) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Progress{
		Started:     r.started,
		Slices:      r.slices,
		Stored:      r.stored,
		WriteErrors: r.writeErrors,
	}
	if !r.started.IsZero() {
		p.Collection = r.collection.ID
	}
	return p
}

func (r *Runner) runnables() []Runnable {
	out := append([]Runnable(nil), r.sources.Background...)
	for _, b := range r.sources.Latency {
		if src, ok := b.Source.(Runnable); ok {
			out = append(out, src)
		}
	}
	if src, ok := r.sources.Events.(Runnable); ok {
		out = append(out, src)
	}
	return out
}

func (r *Runner) loop(ctx context.Context) {
	slice := time.NewTicker(r.cfg.Timeslice)
	defer slice.Stop()

	var events <-chan time.Time
	if r.sources.Events != nil {
		t := time.NewTicker(r.cfg.EventInterval)
		defer t.Stop()
		events = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-slice.C:
			r.sample(ctx)
		case <-events:
			r.drainEvents(ctx)
		}
	}
}

// sample stores one timeslice of every latency source.
func (r *Runner) sample(ctx context.Context) {
	ts := r.cfg.Now().Unix()
	var timings []storage.Timing
	var outcomes []storage.Outcome
	for _, b := range r.sources.Latency {
		t, o := r.sampler.Sample(b.Probe, b.Source.Snapshot(), ts)
		timings = append(timings, t...)
		outcomes = append(outcomes, o...)
	}

	timingErr := r.store.AddTimings(ctx, timings)
	outcomeErr := r.store.AddOutcomes(ctx, outcomes)

	r.mu.Lock()
	r.slices++
	if timingErr == nil {
		r.stored.Timings += len(timings)
	}
	if outcomeErr == nil {
		r.stored.Outcomes += len(outcomes)
	}
	r.mu.Unlock()

	if timingErr != nil {
		r.writeFailed(timingErr, "timings")
	}
	if outcomeErr != nil {
		r.writeFailed(outcomeErr, "ters")
	}

	r.logger.Debug().
		Int64("timestamp", ts).
		Int("timings", len(timings)).
		Int("outcomes", len(outcomes)).
		Msg("Sampled timeslice")
}

// drainEvents stores the transactions received since the last drain,
// stamped with the drain time.
func (r *Runner) drainEvents(ctx context.Context) {
	if r.sources.Events == nil {
		return
	}

	events := r.sources.Events.Drain()
	if lost := r.sources.Events.Lost(); lost > r.lost {
		r.logger.Warn().Uint64("lost", lost-r.lost).Uint64("total", lost).Msg("Transaction events lost")
		r.lost = lost
	}
	if len(events) == 0 {
		return
	}

	rows := TransactionRows(r.collection.ID, events, r.cfg.Now().Unix())
	if err := r.store.AddTransactions(ctx, rows); err != nil {
		r.writeFailed(err, "transactions")
		return
	}
	r.mu.Lock()
	r.stored.Transactions += len(rows)
	r.mu.Unlock()
}

func (r *Runner) writeFailed(err error, table string) {
	r.mu.Lock()
	r.writeErrors++
	n := r.writeErrors
	r.mu.Unlock()
	r.logger.Error().Err(err).Str("table", table).Uint64("write_errors", n).Msg("Failed to store samples")
}

func (r *Runner) logStats() {
	for _, b := range r.sources.Latency {
		if src, ok := b.Source.(statsSource); ok {
			logStats(r.logger, b.Probe.Name, src.Stats())
		}
	}
	if src, ok := r.sources.Events.(statsSource); ok {
		logStats(r.logger, "transactions", src.Stats())
	}
}

func logStats(logger zerolog.Logger, name string, st probe.StatsSnapshot) {
	ev := logger.Info()
	if st.MissedStart+st.TableFull+st.ClampedBuckets+st.ExportDropped+st.ArgReadFailures > 0 {
		ev = logger.Warn()
	}
	ev.Str("probe", name).
		Uint64("entries", st.Entries).
		Uint64("exits", st.Exits).
		Uint64("matched", st.Matched).
		Uint64("filtered", st.Filtered).
		Uint64("missed_start", st.MissedStart).
		Uint64("table_full", st.TableFull).
		Uint64("orphan_overwrite", st.OrphanOverwrite).
		Uint64("clamped_buckets", st.ClampedBuckets).
		Uint64("export_dropped", st.ExportDropped).
		Uint64("arg_read_failures", st.ArgReadFailures).
		Msg("Probe counters")
}

// TransactionRows converts exported events to rows of the transactions
// table.
func TransactionRows(collectionID string, events []probe.ExportedEvent, ts int64) []storage.Transaction {
	rows := make([]storage.Transaction, len(events))
	for i := range events {
		ev := &events[i]
		rows[i] = storage.Transaction{
			CollectionID: collectionID,
			ID:           ev.HexID(),
			Type:         int64(ev.Type),
			Timestamp:    ts,
			Duration:     toInt64(ev.Duration),
			TER:          int64(ev.Outcome),
		}
	}
	return rows
}
