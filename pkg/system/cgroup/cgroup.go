//go:build linux

package cgroup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

type Version int

const (
	Unsupported Version = iota // no cgroup mounts
	V1                         // legacy multi-hierarchy cgroup v1
	V2                         // unified cgroup v2
	Hybrid                     // both v1 and v2 present
)

func (v Version) String() string {
	switch v {
	case V1:
		return "cgroup v1"
	case V2:
		return "cgroup v2"
	case Hybrid:
		return "cgroup hybrid"
	default:
		return "unsupported"
	}
}

// Mode is the detected cgroup layout of the current process.
type Mode struct {
	Version  Version
	V1Mounts []string
	V2Mounts []string
}

// Detail returns a human-readable list of mount points.
func (m Mode) Detail() string {
	switch m.Version {
	case Hybrid:
		return fmt.Sprintf("cgroup2 on %s; cgroup v1 on %s",
			strings.Join(m.V2Mounts, ","), strings.Join(m.V1Mounts, ","))
	case V2:
		return "cgroup2 on " + strings.Join(m.V2Mounts, ",")
	case V1:
		return "cgroup v1 on " + strings.Join(m.V1Mounts, ",")
	default:
		return "no cgroup mounts found"
	}
}

// Detect inspects /proc/self/mountinfo. Measurements taken inside a cgroup
// still read host-wide counters, so callers use this to flag that case.
func Detect() (Mode, error) {
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return Mode{}, fmt.Errorf("open mountinfo: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return DetectFrom(f)
}

// DetectFrom parses mountinfo content.
// Each line has: <fields> - <fstype> <source> <superopts>; the mount point is
// the fifth pre-separator field (see proc(5)).
func DetectFrom(r io.Reader) (Mode, error) {
	var m Mode
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		const sep = " - "
		i := strings.LastIndex(line, sep)
		if i < 0 {
			continue
		}
		fields := strings.Fields(line[i+len(sep):])
		if len(fields) < 1 {
			continue
		}
		pre := strings.Fields(line[:i])
		if len(pre) < 5 {
			continue
		}
		switch fields[0] {
		case "cgroup2":
			m.V2Mounts = append(m.V2Mounts, pre[4])
		case "cgroup":
			m.V1Mounts = append(m.V1Mounts, pre[4])
		}
	}
	if err := sc.Err(); err != nil {
		return Mode{}, fmt.Errorf("scan mountinfo: %w", err)
	}

	hasV1, hasV2 := len(m.V1Mounts) > 0, len(m.V2Mounts) > 0
	switch {
	case hasV1 && hasV2:
		m.Version = Hybrid
	case hasV2:
		m.Version = V2
	case hasV1:
		m.Version = V1
	}
	return m, nil
}
