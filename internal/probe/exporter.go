package probe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultExporterCapacity is the default number of buffered records.
const DefaultExporterCapacity = 4096

// ErrReaderAttached is returned by Attach while another reader is attached.
var ErrReaderAttached = errors.New("probe: exporter already has a reader")

// ErrReaderClosed is returned by Read after the reader was closed.
var ErrReaderClosed = errors.New("probe: event reader closed")

// Exporter is a bounded ring of encoded records handed from probes to a
// single external reader. Submit never blocks: records are dropped when the
// ring is full or no reader is attached.
type Exporter struct {
	ring     chan [EventSize]byte
	attached atomic.Bool
	dropped  atomic.Uint64
	mu       sync.Mutex
}

// NewExporter allocates a ring holding capacity records.
func NewExporter(capacity int) *Exporter {
	if capacity < 1 {
		capacity = DefaultExporterCapacity
	}
	return &Exporter{ring: make(chan [EventSize]byte, capacity)}
}

// Submit copies rec into the ring. It reports false when the record was
// dropped.
func (x *Exporter) Submit(rec *[EventSize]byte) bool {
	if !x.attached.Load() {
		x.dropped.Add(1)
		return false
	}
	select {
	case x.ring <- *rec:
		return true
	default:
		x.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of records dropped so far.
func (x *Exporter) Dropped() uint64 { return x.dropped.Load() }

// Buffered returns the number of records waiting to be read.
func (x *Exporter) Buffered() int { return len(x.ring) }

// Attach registers the single reader. Records submitted while no reader is
// attached are dropped.
func (x *Exporter) Attach() (*EventReader, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.attached.Load() {
		return nil, ErrReaderAttached
	}
	x.attached.Store(true)
	return &EventReader{x: x, done: make(chan struct{})}, nil
}

// EventReader consumes records from an Exporter.
type EventReader struct {
	x      *Exporter
	done   chan struct{}
	closed sync.Once
}

// Read blocks until a record is available, the context ends or the reader is
// closed.
func (r *EventReader) Read(ctx context.Context) (ExportedEvent, error) {
	select {
	case rec := <-r.x.ring:
		return DecodeEvent(rec[:])
	case <-r.done:
		return ExportedEvent{}, ErrReaderClosed
	case <-ctx.Done():
		return ExportedEvent{}, ctx.Err()
	}
}

// Drain returns every record currently buffered without blocking.
func (r *EventReader) Drain() []ExportedEvent {
	var out []ExportedEvent
	for {
		select {
		case rec := <-r.x.ring:
			ev, err := DecodeEvent(rec[:])
			if err == nil {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}

// Lost returns the exporter's drop count.
func (r *EventReader) Lost() uint64 { return r.x.Dropped() }

// Close detaches the reader. Buffered records stay in the ring for the next
// reader.
func (r *EventReader) Close() error {
	r.closed.Do(func() {
		r.x.mu.Lock()
		r.x.attached.Store(false)
		r.x.mu.Unlock()
		close(r.done)
	})
	return nil
}
