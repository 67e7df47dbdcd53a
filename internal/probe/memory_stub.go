//go:build !linux
// +build !linux

package probe

import "os"

// ProcessMemory is unavailable on this platform; every read fails.
type ProcessMemory struct {
	PID int
}

// SelfMemory returns a ProcessMemory for the current process.
func SelfMemory() ProcessMemory { return ProcessMemory{PID: os.Getpid()} }

// ReadAt implements Memory.
func (ProcessMemory) ReadAt(dst []byte, addr uint64) error {
	return ErrUnreadable
}
