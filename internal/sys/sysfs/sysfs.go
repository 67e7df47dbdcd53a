// Package sysfs inspects /sys for kernel features the BPF loader needs.
package sysfs

import (
	"os"
)

// BTFPath is where the kernel exposes its own type information.
const BTFPath = "/sys/kernel/btf/vmlinux"

// CheckBTFAvailable reports whether kernel BTF is exposed, which CO-RE
// relocations in the BPF objects require.
func CheckBTFAvailable() bool {
	_, err := os.Stat(BTFPath)
	return err == nil
}

// TracingDir returns the mounted tracefs directory, or "" when neither the
// tracefs nor the debugfs location is present.
func TracingDir() string {
	for _, dir := range []string{"/sys/kernel/tracing", "/sys/kernel/debug/tracing"} {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir
		}
	}
	return ""
}
