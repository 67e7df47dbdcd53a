package ebpf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTarget_Validate(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		wantErr bool
	}{
		{"uprobe by pid", Target{PID: 42, EntrySymbol: "_ZN6ripple10TransactorclEv"}, false},
		{"uprobe by path", Target{BinaryPath: "/usr/bin/rippled", EntrySymbol: "f"}, false},
		{"kernel", Target{KernelSymbol: "do_sys_openat2"}, false},
		{"both", Target{KernelSymbol: "k", EntrySymbol: "f", PID: 1}, true},
		{"neither", Target{PID: 1}, true},
		{"no binary", Target{EntrySymbol: "f"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTarget_TGID(t *testing.T) {
	assert.Equal(t, uint32(42), Target{PID: 42, EntrySymbol: "f"}.tgid())
	assert.Equal(t, uint32(0), Target{BinaryPath: "/bin/x", EntrySymbol: "f"}.tgid())
	assert.Equal(t, uint32(0), Target{PID: 42, KernelSymbol: "k"}.tgid())
}
