//go:build !linux
// +build !linux

package probe

import (
	"os"
	"time"
)

var clockBase = time.Now()

// MonotonicClock measures nanoseconds since package initialization using the
// runtime monotonic clock.
type MonotonicClock struct{}

// Now implements Clock.
func (MonotonicClock) Now() uint64 {
	return uint64(time.Since(clockBase))
}

// CurrentTask returns the process id for both fields; thread ids are not
// exposed on this platform.
func CurrentTask() Task {
	pid := uint32(os.Getpid())
	return Task{Context: ExecutionContext(pid), TGID: pid}
}
