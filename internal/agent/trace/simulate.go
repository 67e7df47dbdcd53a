package trace

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"os"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seelabs/xrpl-probe/internal/probe"
)

// Transaction types used by the workload, as numbered by rippled.
const (
	txTypePayment     uint32 = 0
	txTypeOfferCreate uint32 = 7
)

// SimulationConfig describes a synthetic workload driving in-process probes.
type SimulationConfig struct {
	Probes       []Probe
	Transactions bool

	// Workers is the number of concurrent execution contexts.
	Workers int
	// MeanLatency is the median of the log-normal apply time.
	MeanLatency time.Duration
	// Pause separates two transactions of a worker.
	Pause time.Duration
	// Limit stops each worker after that many transactions; zero runs until
	// the context is done.
	Limit int

	Capacity int
	Band     probe.OutcomeBand
	Filter   probe.Filter
	Seed     uint64
	Logger   zerolog.Logger
}

// Simulation feeds generated transactions through real LatencyProbe and
// TxProbe instances. Its Sources plug into a Runner like kernel collectors.
type Simulation struct {
	cfg    SimulationConfig
	logger zerolog.Logger
	tgid   uint32

	latency   map[int64]*probe.LatencyProbe
	bindings  []Binding
	tx        *probe.TxProbe
	events    *probe.EventReader
	generated atomic.Uint64
	nextCtxID atomic.Uint32
}

// simEvents exposes the exporter reader and the engine counters of the
// transaction pipeline as one source.
type simEvents struct {
	*probe.EventReader
	*probe.TxProbe
}

// NewSimulation builds the probes of the workload.
func NewSimulation(cfg SimulationConfig) (*Simulation, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.MeanLatency <= 0 {
		cfg.MeanLatency = 200 * time.Microsecond
	}
	if cfg.Band.End <= cfg.Band.Start {
		cfg.Band = probe.DefaultOutcomeBand
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = probe.DefaultTableCapacity
	}

	s := &Simulation{
		cfg:     cfg,
		logger:  cfg.Logger.With().Str("component", "simulation").Logger(),
		tgid:    uint32(os.Getpid()),
		latency: make(map[int64]*probe.LatencyProbe),
	}
	engine := probe.EngineConfig{Capacity: cfg.Capacity, Filter: cfg.Filter}

	for _, p := range cfg.Probes {
		if p.KernelSymbol != "" {
			return nil, errors.New("trace: kernel probes cannot be simulated")
		}
		lp, err := probe.NewLatencyProbe(engine, cfg.Band)
		if err != nil {
			return nil, err
		}
		s.latency[p.ID] = lp
		s.bindings = append(s.bindings, Binding{Probe: p, Source: lp})
	}

	if cfg.Transactions {
		tx, err := probe.NewTxProbe(engine, probe.SelfMemory(), probe.NewExporter(probe.DefaultExporterCapacity))
		if err != nil {
			return nil, err
		}
		events, err := tx.Exporter().Attach()
		if err != nil {
			return nil, err
		}
		s.tx = tx
		s.events = events
	}

	if len(s.bindings) == 0 && s.tx == nil {
		return nil, errors.New("trace: simulation has no probes")
	}
	return s, nil
}

// Sources returns the probes as runner sources, with the workload as a
// background task.
func (s *Simulation) Sources() Sources {
	src := Sources{
		Latency:    s.bindings,
		Background: []Runnable{s},
	}
	if s.tx != nil {
		src.Events = simEvents{EventReader: s.events, TxProbe: s.tx}
	}
	return src
}

// Generated returns the number of transactions applied so far.
func (s *Simulation) Generated() uint64 { return s.generated.Load() }

// Run drives the workers until ctx is done or every worker reached Limit.
func (s *Simulation) Run(ctx context.Context) error {
	s.logger.Info().
		Int("workers", s.cfg.Workers).
		Dur("mean_latency", s.cfg.MeanLatency).
		Int("limit", s.cfg.Limit).
		Msg("Starting synthetic workload")

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.cfg.Workers; w++ {
		g.Go(func() error {
			s.worker(gctx, w)
			return nil
		})
	}
	err := g.Wait()
	s.logger.Info().Uint64("transactions", s.Generated()).Msg("Synthetic workload stopped")
	return err
}

// Close detaches the event reader.
func (s *Simulation) Close() error {
	if s.events != nil {
		return s.events.Close()
	}
	return nil
}

// txArgs is the memory the transaction trace point's arguments point at.
type txArgs struct {
	id      [probe.IDSize]byte
	txType  uint32
	outcome int32
}

func (s *Simulation) worker(ctx context.Context, n int) {
	rng := rand.New(rand.NewPCG(s.cfg.Seed, uint64(n)+1))
	task := probe.Task{
		Context: probe.ExecutionContext(s.nextCtxID.Add(1)),
		TGID:    s.tgid,
	}
	data := new(txArgs)

	for i := 0; s.cfg.Limit == 0 || i < s.cfg.Limit; i++ {
		if ctx.Err() != nil {
			return
		}
		s.apply(rng, task, data)
		s.generated.Add(1)

		if s.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.Pause):
			}
		}
	}
}

// apply runs one transaction through the probes: the transactor wraps the
// type-specific preflight..doApply span, and the transaction pipeline spans
// the whole transactor call.
func (s *Simulation) apply(rng *rand.Rand, task probe.Task, data *txArgs) {
	id, txType := ProbePayment, txTypePayment
	if rng.IntN(3) == 0 {
		id, txType = ProbeOfferCreate, txTypeOfferCreate
	}
	code := s.outcome(rng)

	if s.tx != nil {
		s.tx.OnEntry(task)
	}
	transactor := s.latency[ProbeTransactor]
	if transactor != nil {
		transactor.OnEntry(task)
	}

	inner := s.latency[id]
	if inner != nil {
		inner.OnEntry(task)
	}
	time.Sleep(s.latencySample(rng))
	if inner != nil {
		inner.OnExit(task, code)
	}

	if transactor != nil {
		transactor.OnExit(task, 0)
	}
	if s.tx != nil {
		for i := 0; i < len(data.id); i += 8 {
			v := rng.Uint64()
			for j := 0; j < 8; j++ {
				data.id[i+j] = byte(v >> (8 * j))
			}
		}
		data.txType = txType
		data.outcome = int32(code)
		args := probe.Args{
			uint64(uintptr(unsafe.Pointer(&data.id[0]))),
			uint64(uintptr(unsafe.Pointer(&data.txType))),
			uint64(uintptr(unsafe.Pointer(&data.outcome))),
		}
		s.tx.OnExit(task, &args)
		runtime.KeepAlive(data)
	}
}

// outcome draws a result code: mostly success, some claimed-fee results in
// the band and a few negative local failures.
func (s *Simulation) outcome(rng *rand.Rand) int64 {
	switch r := rng.IntN(100); {
	case r < 80:
		return 0
	case r < 95:
		return s.cfg.Band.Start + rng.Int64N(s.cfg.Band.End-s.cfg.Band.Start)
	default:
		return -1 - rng.Int64N(299)
	}
}

func (s *Simulation) latencySample(rng *rand.Rand) time.Duration {
	median := float64(s.cfg.MeanLatency)
	return time.Duration(median * math.Exp(0.75*rng.NormFloat64()))
}
