//go:build linux
// +build linux

package probe

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ProcessMemory reads another (or the current) process's memory with
// process_vm_readv, which reports EFAULT for unmapped addresses instead of
// crashing the reader.
type ProcessMemory struct {
	PID int
}

// SelfMemory reads the current process.
func SelfMemory() ProcessMemory { return ProcessMemory{PID: os.Getpid()} }

// ReadAt implements Memory.
func (m ProcessMemory) ReadAt(dst []byte, addr uint64) error {
	if len(dst) == 0 {
		return nil
	}
	if addr == 0 {
		return ErrUnreadable
	}
	local := [1]unix.Iovec{{Base: (*byte)(unsafe.Pointer(&dst[0]))}}
	local[0].SetLen(len(dst))
	remote := [1]unix.RemoteIovec{{Base: uintptr(addr), Len: len(dst)}}

	n, err := unix.ProcessVMReadv(m.PID, local[:], remote[:], 0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if n != len(dst) {
		return fmt.Errorf("%w: short read %d of %d", ErrUnreadable, n, len(dst))
	}
	return nil
}
