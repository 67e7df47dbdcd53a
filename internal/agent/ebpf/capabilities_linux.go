//go:build linux

package ebpf

import (
	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/features"
	"golang.org/x/sys/unix"
)

const (
	capSysAdmin = 21
	capPerfmon  = 38
	capBPF      = 39
)

// hasCapBPF reports whether the effective set allows loading tracing
// programs: CAP_BPF with CAP_PERFMON, or CAP_SYS_ADMIN on older kernels.
func hasCapBPF() bool {
	hdr := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var data [2]unix.CapUserData
	if err := unix.Capget(&hdr, &data[0]); err != nil {
		return false
	}
	has := func(c uint) bool {
		return data[c/32].Effective&(1<<(c%32)) != 0
	}
	return has(capSysAdmin) || (has(capBPF) && has(capPerfmon))
}

// missingFeatures lists the program and map types the collectors need but
// the kernel lacks.
func missingFeatures() []string {
	var missing []string
	if features.HaveProgramType(ebpf.Kprobe) != nil {
		missing = append(missing, "kprobe programs")
	}
	if features.HaveMapType(ebpf.Hash) != nil {
		missing = append(missing, "hash maps")
	}
	if features.HaveMapType(ebpf.PerfEventArray) != nil {
		missing = append(missing, "perf event arrays")
	}
	return missing
}
