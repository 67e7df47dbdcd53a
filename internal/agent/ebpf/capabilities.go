package ebpf

import (
	"context"
	"runtime"

	"github.com/seelabs/xrpl-probe/internal/sys/proc"
	"github.com/seelabs/xrpl-probe/internal/sys/sysfs"
)

// Capabilities describes what the host allows the kernel backend to do.
type Capabilities struct {
	Supported     bool     `json:"supported"`
	KernelVersion string   `json:"kernel_version"`
	BTF           bool     `json:"btf"`
	CapBPF        bool     `json:"cap_bpf"`
	TracingDir    string   `json:"tracing_dir,omitempty"`
	Missing       []string `json:"missing,omitempty"`
}

// DetectCapabilities probes the running kernel.
func DetectCapabilities(ctx context.Context) Capabilities {
	if runtime.GOOS != "linux" {
		return Capabilities{KernelVersion: runtime.GOOS + " (not Linux)"}
	}

	caps := Capabilities{
		KernelVersion: proc.KernelVersion(ctx),
		BTF:           sysfs.CheckBTFAvailable(),
		TracingDir:    sysfs.TracingDir(),
		CapBPF:        hasCapBPF(),
	}
	caps.Missing = missingFeatures()
	caps.Supported = caps.CapBPF && len(caps.Missing) == 0
	return caps
}
