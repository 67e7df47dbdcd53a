package ebpf

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCapabilities(t *testing.T) {
	caps := DetectCapabilities(context.Background())
	assert.NotEmpty(t, caps.KernelVersion)
	if runtime.GOOS != "linux" {
		assert.False(t, caps.Supported)
		return
	}
	if caps.Supported {
		assert.True(t, caps.CapBPF)
		assert.Empty(t, caps.Missing)
	}
}
