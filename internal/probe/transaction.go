package probe

import "encoding/binary"

// Argument positions of the transaction exit trace point.
const (
	ArgID      = 1
	ArgType    = 2
	ArgOutcome = 3
)

// TxSink marshals each matched transaction into a fixed record and submits
// it to an Exporter. Arguments that cannot be read are zero-filled and
// counted; the record is still exported.
type TxSink struct {
	mem      Memory
	exporter *Exporter
}

// NewTxSink builds a sink reading arguments through mem.
func NewTxSink(mem Memory, exporter *Exporter) *TxSink {
	return &TxSink{mem: mem, exporter: exporter}
}

// Record implements Sink.
func (s *TxSink) Record(sm Sample, args ArgSource, stats *Stats) {
	ev := ExportedEvent{Duration: sm.Duration}

	s.read(args, ArgID, ev.ID[:], stats)

	var word [4]byte
	if s.read(args, ArgType, word[:], stats) {
		ev.Type = binary.NativeEndian.Uint32(word[:])
	}
	word = [4]byte{}
	if s.read(args, ArgOutcome, word[:], stats) {
		ev.Outcome = int32(binary.NativeEndian.Uint32(word[:]))
	}

	var rec [EventSize]byte
	ev.MarshalTo(rec[:])
	if !s.exporter.Submit(&rec) {
		stats.ExportDropped.Add(1)
	}
}

func (s *TxSink) read(args ArgSource, n int, dst []byte, stats *Stats) bool {
	addr, ok := args.Arg(n)
	if ok && addr != 0 && s.mem.ReadAt(dst, addr) == nil {
		return true
	}
	clear(dst)
	stats.ArgReadFailures.Add(1)
	return false
}

// TxProbe is the transaction pipeline: an Engine whose exit payload is the
// trace point's argument list.
type TxProbe struct {
	*Engine[ArgSource]
	exporter *Exporter
}

// NewTxProbe builds a transaction probe exporting into exporter.
func NewTxProbe(cfg EngineConfig, mem Memory, exporter *Exporter) (*TxProbe, error) {
	engine, err := NewEngine[ArgSource](cfg, NewTxSink(mem, exporter))
	if err != nil {
		return nil, err
	}
	return &TxProbe{Engine: engine, exporter: exporter}, nil
}

// Exporter returns the exporter the probe submits to.
func (p *TxProbe) Exporter() *Exporter { return p.exporter }
