//go:build linux
// +build linux

package probe

import "golang.org/x/sys/unix"

// MonotonicClock reads CLOCK_MONOTONIC, the same clock bpf_ktime_get_ns uses,
// so in-process and kernel timestamps are comparable.
type MonotonicClock struct{}

// Now implements Clock.
func (MonotonicClock) Now() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Nano())
}

// CurrentTask returns the calling OS thread and process ids. Goroutines
// migrate between threads, so callers that need a stable context across a
// blocking call must lock the goroutine to its thread.
func CurrentTask() Task {
	return Task{
		Context: ExecutionContext(uint32(unix.Gettid())),
		TGID:    uint32(unix.Getpid()),
	}
}
