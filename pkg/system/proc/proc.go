//go:build linux

package proc

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ja7ad/greenpipeline/pkg/types"
)

// DefaultRoot is where procfs is normally mounted.
const DefaultRoot = "/proc"

// CPUTimes holds aggregate jiffy counters from the "cpu" line of /proc/stat.
//   - Active: user + nice + system + irq + softirq + steal
//   - Total:  Active + idle + iowait
//
// Both are monotonic; utilization is the ratio of their deltas.
type CPUTimes struct {
	Active uint64
	Total  uint64
}

// MemInfo is the subset of /proc/meminfo needed to derive used memory.
type MemInfo struct {
	Total     types.Bytes
	Available types.Bytes
	Free      types.Bytes
	Buffers   types.Bytes
	Cached    types.Bytes
}

// Used returns memory in use: MemTotal - MemAvailable. On kernels older than
// 3.14 (no MemAvailable) it falls back to Total - Free - Buffers - Cached.
func (m MemInfo) Used() types.Bytes {
	if m.Available > 0 {
		return m.Total.Sub(m.Available)
	}
	return m.Total.Sub(m.Free + m.Buffers + m.Cached)
}

//
// System-level readers
//

// ReadSystemCPU reads the aggregate CPU line from <root>/stat.
func ReadSystemCPU(root string) (CPUTimes, error) {
	f, err := os.Open(filepath.Join(root, "stat"))
	if err != nil {
		return CPUTimes{}, err
	}
	defer f.Close()
	return parseSystemCPU(f)
}

// ReadMemInfo reads <root>/meminfo.
func ReadMemInfo(root string) (MemInfo, error) {
	f, err := os.Open(filepath.Join(root, "meminfo"))
	if err != nil {
		return MemInfo{}, err
	}
	defer f.Close()
	return parseMemInfo(f)
}

func parseSystemCPU(r io.Reader) (CPUTimes, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fs := strings.Fields(sc.Text())
		if len(fs) == 0 || fs[0] != "cpu" {
			continue
		}
		if len(fs) < 9 {
			return CPUTimes{}, ErrNoCPU
		}
		// user nice system idle iowait irq softirq steal [guest guest_nice]
		vals := make([]uint64, 0, len(fs)-1)
		for _, s := range fs[1:] {
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return CPUTimes{}, ErrNoCPU
			}
			vals = append(vals, v)
		}
		active := vals[0] + vals[1] + vals[2] + vals[5] + vals[6] + vals[7]
		return CPUTimes{Active: active, Total: active + vals[3] + vals[4]}, nil
	}
	if err := sc.Err(); err != nil {
		return CPUTimes{}, err
	}
	return CPUTimes{}, ErrNoCPU
}

func parseMemInfo(r io.Reader) (MemInfo, error) {
	var (
		m    MemInfo
		seen bool
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		// "MemTotal:       16318480 kB"
		key, rest, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		fs := strings.Fields(rest)
		if len(fs) == 0 {
			continue
		}
		kb, err := strconv.ParseUint(fs[0], 10, 64)
		if err != nil {
			continue
		}
		v := types.FromKiB(kb)
		switch key {
		case "MemTotal":
			m.Total, seen = v, true
		case "MemAvailable":
			m.Available = v
		case "MemFree":
			m.Free = v
		case "Buffers":
			m.Buffers = v
		case "Cached":
			m.Cached = v
		}
	}
	if err := sc.Err(); err != nil {
		return MemInfo{}, err
	}
	if !seen {
		return MemInfo{}, ErrNoMemInfo
	}
	return m, nil
}
