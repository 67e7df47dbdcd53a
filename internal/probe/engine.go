package probe

// Sample is the measurement produced by a matched exit.
type Sample struct {
	Task     Task
	Duration uint64
}

// Sink consumes matched samples together with the exit payload of the
// pipeline. Record runs on the probe path and must not block or allocate.
type Sink[E any] interface {
	Record(s Sample, exit E, stats *Stats)
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Capacity bounds the number of concurrently pending invocations.
	Capacity int
	// Clock defaults to MonotonicClock.
	Clock Clock
	// Filter is evaluated at entry and exit; nil accepts everything.
	Filter Filter
}

// Engine correlates entry and exit events per execution context and hands
// matched durations to a Sink. The latency and transaction pipelines are both
// Engines; only the exit payload and sink differ.
type Engine[E any] struct {
	table  *StartTable
	clock  Clock
	filter Filter
	sink   Sink[E]
	stats  Stats
}

// NewEngine builds an engine around sink.
func NewEngine[E any](cfg EngineConfig, sink Sink[E]) (*Engine[E], error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultTableCapacity
	}
	table, err := NewStartTable(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = MonotonicClock{}
	}
	return &Engine[E]{
		table:  table,
		clock:  clock,
		filter: cfg.Filter,
		sink:   sink,
	}, nil
}

// OnEntry records the start of an invocation on task.
func (e *Engine[E]) OnEntry(task Task) {
	if e.filter != nil && !e.filter(task) {
		e.stats.Filtered.Add(1)
		return
	}
	e.stats.Entries.Add(1)

	switch e.table.Insert(task.Context, e.clock.Now()) {
	case Overwritten:
		e.stats.OrphanOverwrite.Add(1)
	case Full:
		e.stats.TableFull.Add(1)
	}
}

// OnExit completes the invocation on task. Without a pending start the call
// is a no-op apart from the MissedStart counter.
func (e *Engine[E]) OnExit(task Task, exit E) {
	if e.filter != nil && !e.filter(task) {
		e.stats.Filtered.Add(1)
		return
	}
	e.stats.Exits.Add(1)

	start, ok := e.table.Take(task.Context)
	if !ok {
		e.stats.MissedStart.Add(1)
		return
	}
	now := e.clock.Now()
	if now < start {
		e.stats.MissedStart.Add(1)
		return
	}

	e.stats.Matched.Add(1)
	e.sink.Record(Sample{Task: task, Duration: now - start}, exit, &e.stats)
}

// Pending returns the number of invocations currently in flight.
func (e *Engine[E]) Pending() int { return e.table.Len() }

// Reset forgets all pending invocations. It must not race with OnEntry/OnExit.
func (e *Engine[E]) Reset() { e.table.Reset() }

// Stats returns a copy of the degradation counters.
func (e *Engine[E]) Stats() StatsSnapshot { return e.stats.Snapshot() }
