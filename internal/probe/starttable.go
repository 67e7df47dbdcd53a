package probe

import (
	"encoding/binary"
	"errors"
	"sync/atomic"

	"github.com/zeebo/xxh3"
)

// DefaultTableCapacity matches the default max_entries of a kernel BPF hash map.
const DefaultTableCapacity = 10240

// ErrInvalidCapacity is returned when a table is created with capacity < 1.
var ErrInvalidCapacity = errors.New("probe: table capacity must be positive")

// Slot key encoding. Context ids are shifted by keyBias so that the two
// reserved states never collide with a real id.
const (
	slotEmpty     uint64 = 0
	slotTombstone uint64 = 1
	keyBias       uint64 = 2
)

type slot struct {
	key atomic.Uint64
	ts  atomic.Uint64
}

// InsertResult tells the caller what an Insert did to the table.
type InsertResult uint8

const (
	// Inserted claimed a free slot.
	Inserted InsertResult = iota
	// Overwritten replaced the pending start of the same context.
	Overwritten
	// Full means no slot was free; the entry was not recorded.
	Full
)

// StartTable is a fixed-capacity open-addressing map from ExecutionContext to
// an entry timestamp.
//
// A context is only ever inserted or taken by the invocation that owns it, so
// the table only has to arbitrate between different keys racing for the same
// free slot. Freed slots become tombstones and are reused by later inserts;
// an empty slot never reappears except through Reset, which keeps every live
// key ahead of the first empty slot on its probe sequence.
//
// Under contention an insert into an almost full table can report Full while
// another context is freeing a slot behind it; that entry is simply not
// measured.
type StartTable struct {
	slots []slot
	live  atomic.Int64
}

// NewStartTable allocates a table holding at most capacity pending starts.
func NewStartTable(capacity int) (*StartTable, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return &StartTable{slots: make([]slot, capacity)}, nil
}

// Cap returns the fixed capacity.
func (t *StartTable) Cap() int { return len(t.slots) }

// Len returns the number of pending starts.
func (t *StartTable) Len() int { return int(t.live.Load()) }

func (t *StartTable) home(ctx ExecutionContext) uint64 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(ctx))
	return xxh3.Hash(b[:]) % uint64(len(t.slots))
}

// Insert records ts as the start of ctx, replacing any pending start of the
// same context.
func (t *StartTable) Insert(ctx ExecutionContext, ts uint64) InsertResult {
	n := uint64(len(t.slots))
	key := uint64(ctx) + keyBias
	h := t.home(ctx)

	for i := uint64(0); i < n; i++ {
		s := &t.slots[(h+i)%n]
		k := s.key.Load()
		if k == key {
			s.ts.Store(ts)
			return Overwritten
		}
		if k == slotEmpty {
			break
		}
	}

	for i := uint64(0); i < n; i++ {
		s := &t.slots[(h+i)%n]
		k := s.key.Load()
		if k != slotEmpty && k != slotTombstone {
			continue
		}
		if s.key.CompareAndSwap(k, key) {
			s.ts.Store(ts)
			t.live.Add(1)
			return Inserted
		}
	}
	return Full
}

// Take removes the pending start of ctx and returns its timestamp.
func (t *StartTable) Take(ctx ExecutionContext) (uint64, bool) {
	n := uint64(len(t.slots))
	key := uint64(ctx) + keyBias
	h := t.home(ctx)

	for i := uint64(0); i < n; i++ {
		s := &t.slots[(h+i)%n]
		k := s.key.Load()
		if k == key {
			ts := s.ts.Load()
			s.key.Store(slotTombstone)
			t.live.Add(-1)
			return ts, true
		}
		if k == slotEmpty {
			return 0, false
		}
	}
	return 0, false
}

// Reset drops every pending start. It must not race with Insert or Take.
func (t *StartTable) Reset() {
	for i := range t.slots {
		t.slots[i].key.Store(slotEmpty)
		t.slots[i].ts.Store(0)
	}
	t.live.Store(0)
}
