//go:build linux

package proc

import (
	"sync"

	"github.com/ja7ad/greenpipeline/pkg/system/util"
	"github.com/ja7ad/greenpipeline/pkg/types"
)

// SystemSource reports host-wide CPU and memory utilization from procfs.
// It implements sampler.Source and sampler.Resetter.
//
// CPU utilization is computed from the jiffy deltas between consecutive calls
// (the first call after Reset measures from the Reset baseline):
//
//	U = Δactive / Δtotal * 100
type SystemSource struct {
	root string

	mu   sync.Mutex
	prev CPUTimes
}

// NewSystemSource returns a source reading from root ("" means DefaultRoot)
// with its CPU baseline seeded.
func NewSystemSource(root string) (*SystemSource, error) {
	if root == "" {
		root = DefaultRoot
	}
	s := &SystemSource{root: root}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset re-seeds the CPU baseline.
func (s *SystemSource) Reset() error {
	t, err := ReadSystemCPU(s.root)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.prev = t
	s.mu.Unlock()
	return nil
}

// CPUPercent returns host CPU utilization in [0,100] since the previous call.
func (s *SystemSource) CPUPercent() (float64, error) {
	now, err := ReadSystemCPU(s.root)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	dActive := util.DeltaU64(now.Active, s.prev.Active)
	dTotal := util.DeltaU64(now.Total, s.prev.Total)
	s.prev = now
	s.mu.Unlock()

	return util.Clamp01(util.SafeDiv(float64(dActive), float64(dTotal))) * 100, nil
}

// MemoryUsed returns host memory in use.
func (s *SystemSource) MemoryUsed() (types.Bytes, error) {
	m, err := ReadMemInfo(s.root)
	if err != nil {
		return 0, err
	}
	return m.Used(), nil
}
