package probe

// LatencySnapshot is a point-in-time copy of the latency pipeline counters.
// Kernel-backed collectors produce the same shape from their BPF maps.
type LatencySnapshot struct {
	Dist     []uint64 `json:"dist"`
	Band     []uint64 `json:"band"`
	Negative []uint64 `json:"negative"`
	Result   []uint64 `json:"result"`
}

// NewLatencySnapshot returns a zeroed snapshot with the standard sizes.
func NewLatencySnapshot() LatencySnapshot {
	return LatencySnapshot{
		Dist:     make([]uint64, LatencyBuckets),
		Band:     make([]uint64, BandBuckets),
		Negative: make([]uint64, NegativeBuckets),
		Result:   make([]uint64, ResultBuckets),
	}
}

// Count returns the number of measured invocations (the sum of Result).
func (s LatencySnapshot) Count() uint64 {
	var n uint64
	for _, c := range s.Result {
		n += c
	}
	return n
}

// LatencySink aggregates durations into a log2 histogram and return codes
// into band, negative and zero/non-zero counters.
type LatencySink struct {
	band     OutcomeBand
	dist     *Histogram
	bandHist *Histogram
	negative *Histogram
	result   *Histogram
}

// NewLatencySink allocates the four histograms.
func NewLatencySink(band OutcomeBand) *LatencySink {
	return &LatencySink{
		band:     band,
		dist:     NewHistogram(LatencyBuckets),
		bandHist: NewHistogram(BandBuckets),
		negative: NewHistogram(NegativeBuckets),
		result:   NewHistogram(ResultBuckets),
	}
}

// Record implements Sink.
func (s *LatencySink) Record(sm Sample, code int64, stats *Stats) {
	b, clamped := Log2Bucket(sm.Duration, s.dist.Len())
	if clamped {
		stats.ClampedBuckets.Add(1)
	}
	s.dist.Increment(b)

	o := ClassifyOutcome(code, s.band, s.negative.Len())
	if o.Band >= 0 && s.bandHist.Increment(o.Band) {
		stats.ClampedBuckets.Add(1)
	}
	if o.Negative >= 0 {
		s.negative.Increment(o.Negative)
	}
	s.result.Increment(o.Result)
}

// Snapshot copies all counters.
func (s *LatencySink) Snapshot() LatencySnapshot {
	return LatencySnapshot{
		Dist:     s.dist.Snapshot(),
		Band:     s.bandHist.Snapshot(),
		Negative: s.negative.Snapshot(),
		Result:   s.result.Snapshot(),
	}
}

// LatencyProbe is the latency pipeline: an Engine whose exit payload is the
// function's return code.
type LatencyProbe struct {
	*Engine[int64]
	sink *LatencySink
}

// NewLatencyProbe builds a latency probe.
func NewLatencyProbe(cfg EngineConfig, band OutcomeBand) (*LatencyProbe, error) {
	sink := NewLatencySink(band)
	engine, err := NewEngine[int64](cfg, sink)
	if err != nil {
		return nil, err
	}
	return &LatencyProbe{Engine: engine, sink: sink}, nil
}

// Snapshot copies the histograms.
func (p *LatencyProbe) Snapshot() LatencySnapshot { return p.sink.Snapshot() }
