//go:build linux

package util

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ja7ad/greenpipeline/pkg/types"
	"golang.org/x/sys/unix"
)

// Host describes the machine the measurement runs on.
type Host struct {
	Hostname string
	Kernel   string
	Machine  string // uname -m, e.g. x86_64, aarch64
	CPUs     int
	Memory   types.Bytes
}

// Machine returns the hardware architecture as reported by uname(2),
// falling back to runtime.GOARCH.
func Machine() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return runtime.GOARCH
	}
	if m := unix.ByteSliceToString(u.Machine[:]); m != "" {
		return m
	}
	return runtime.GOARCH
}

// DescribeHost collects uname(2) and sysinfo(2) data. Fields that cannot be
// read are left at their zero value.
func DescribeHost() (Host, error) {
	h := Host{CPUs: runtime.NumCPU(), Machine: runtime.GOARCH}
	h.Hostname, _ = os.Hostname()

	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return h, fmt.Errorf("uname: %w", err)
	}
	h.Kernel = unix.ByteSliceToString(u.Release[:])
	if m := unix.ByteSliceToString(u.Machine[:]); m != "" {
		h.Machine = m
	}

	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return h, fmt.Errorf("sysinfo: %w", err)
	}
	h.Memory = types.ToBytes(uint64(si.Totalram) * uint64(si.Unit))
	return h, nil
}

// SystemSummary returns printable host, kernel, cpu and memory strings.
func SystemSummary() (host, kernel, cpus, mem string) {
	h, _ := DescribeHost()
	return h.Hostname, h.Kernel, fmt.Sprintf("%d (%s)", h.CPUs, h.Machine), h.Memory.Humanized()
}
