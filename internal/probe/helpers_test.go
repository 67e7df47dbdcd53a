package probe

import (
	"sync/atomic"
)

// fakeClock is a settable monotonic clock.
type fakeClock struct {
	now atomic.Uint64
}

func (c *fakeClock) Now() uint64 { return c.now.Load() }
func (c *fakeClock) Set(ns uint64) { c.now.Store(ns) }
func (c *fakeClock) Advance(ns uint64) { c.now.Add(ns) }

// fakeMemory maps addresses to byte regions.
type fakeMemory map[uint64][]byte

func (m fakeMemory) ReadAt(dst []byte, addr uint64) error {
	region, ok := m[addr]
	if !ok || len(region) < len(dst) {
		return ErrUnreadable
	}
	copy(dst, region)
	return nil
}

func task(ctx uint32) Task {
	return Task{Context: ExecutionContext(ctx), TGID: 100}
}
