//go:build linux
// +build linux

package probe

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfMemory_ReadAt(t *testing.T) {
	src := []byte("correlation-identifier-32-bytes!")
	mem := SelfMemory()

	dst := make([]byte, len(src))
	err := mem.ReadAt(dst, uint64(uintptr(unsafe.Pointer(&src[0]))))
	runtime.KeepAlive(src)
	if err != nil {
		t.Skipf("process_vm_readv not permitted here: %v", err)
	}
	assert.Equal(t, src, dst)
}

func TestSelfMemory_BadAddress(t *testing.T) {
	mem := SelfMemory()
	dst := make([]byte, 4)

	require.ErrorIs(t, mem.ReadAt(dst, 0), ErrUnreadable)
	assert.ErrorIs(t, mem.ReadAt(dst, 8), ErrUnreadable)
}
