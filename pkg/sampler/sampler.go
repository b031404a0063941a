// Package sampler polls CPU and memory utilization on a fixed cadence while
// some other operation runs, and reports the mean of each series once stopped.
//
// Lifecycle is Idle -> Sampling -> Stopped. Stopped is terminal: a Sampler
// measures exactly one operation.
//
//	s := sampler.New(src)
//	if err := s.Start(ctx); err != nil { ... }
//	res := run()        // the monitored operation
//	avg := s.Stop()     // bounded join, then averages
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ja7ad/greenpipeline/pkg/types"
)

const (
	DefaultInterval    = 100 * time.Millisecond
	DefaultJoinTimeout = time.Second
)

// Source reads instantaneous system utilization.
type Source interface {
	// CPUPercent returns CPU utilization in [0,100] since the previous call.
	CPUPercent() (float64, error)
	// MemoryUsed returns the amount of memory currently in use.
	MemoryUsed() (types.Bytes, error)
}

// Resetter is implemented by sources that keep deltas between calls and
// need a fresh baseline when sampling starts.
type Resetter interface {
	Reset() error
}

// Sample is one observation.
type Sample struct {
	CPUPercent float64
	MemoryGB   float64
	At         time.Time
}

// Averages is the arithmetic mean of every collected series.
type Averages struct {
	CPUPercent float64
	MemoryGB   float64
	Samples    int
	// Faulted is set when collection ended early because of a source error.
	Faulted bool
	// Detached is set when the collector did not exit within the join timeout.
	Detached bool
}

// MemoryMB is MemoryGB expressed in megabytes (1024 base).
func (a Averages) MemoryMB() float64 { return a.MemoryGB * 1024 }

type state int

const (
	idle state = iota
	sampling
	stopped
)

func (s state) String() string {
	switch s {
	case idle:
		return "idle"
	case sampling:
		return "sampling"
	default:
		return "stopped"
	}
}

// Sampler collects utilization samples in a background goroutine.
type Sampler struct {
	src         Source
	interval    time.Duration
	joinTimeout time.Duration
	log         *slog.Logger
	now         func() time.Time

	state  state
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	samples []Sample
	faulted bool
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithInterval sets the sampling cadence. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithJoinTimeout bounds how long Stop waits for the collector to exit.
func WithJoinTimeout(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.joinTimeout = d
		}
	}
}

// WithLogger sets the logger used for contained faults.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns an idle Sampler reading from src.
func New(src Source, opts ...Option) *Sampler {
	s := &Sampler{
		src:         src,
		interval:    DefaultInterval,
		joinTimeout: DefaultJoinTimeout,
		log:         slog.Default(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches the collector. The collector stops when Stop is called or
// ctx is done, whichever comes first.
func (s *Sampler) Start(ctx context.Context) error {
	if s.state != idle {
		return fmt.Errorf("%w: start while %s", ErrState, s.state)
	}
	if s.src == nil {
		return ErrNoSource
	}
	if r, ok := s.src.(Resetter); ok {
		if err := r.Reset(); err != nil {
			// not fatal: the first tick will just carry a longer delta
			s.log.Warn("sampler: reset source", "err", err)
		}
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.state = sampling

	go s.loop(ctx)
	return nil
}

// Stop signals the collector, waits up to the join timeout for it to exit,
// and returns the averages of whatever was collected. Calling Stop on a
// Sampler that never started returns zero averages.
func (s *Sampler) Stop() Averages {
	var detached bool
	if s.state == sampling {
		s.cancel()
		t := time.NewTimer(s.joinTimeout)
		select {
		case <-s.done:
		case <-t.C:
			detached = true
			s.log.Warn("sampler: collector did not exit in time, using partial samples",
				"timeout", s.joinTimeout)
		}
		t.Stop()
	}
	s.state = stopped

	avg := s.averages()
	avg.Detached = detached
	return avg
}

// Samples returns a copy of the collected series.
func (s *Sampler) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

func (s *Sampler) loop(ctx context.Context) {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.fault(fmt.Errorf("%w: panic: %v", ErrCollect, r))
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			smp, err := s.read()
			if err != nil {
				s.fault(err)
				return
			}
			// a stop that raced with the read still wins
			if ctx.Err() != nil {
				return
			}
			s.mu.Lock()
			s.samples = append(s.samples, smp)
			s.mu.Unlock()
		}
	}
}

func (s *Sampler) read() (Sample, error) {
	cpu, err := s.src.CPUPercent()
	if err != nil {
		return Sample{}, fmt.Errorf("%w: cpu: %w", ErrCollect, err)
	}
	mem, err := s.src.MemoryUsed()
	if err != nil {
		return Sample{}, fmt.Errorf("%w: memory: %w", ErrCollect, err)
	}
	return Sample{
		CPUPercent: clampPercent(cpu),
		MemoryGB:   mem.GB(),
		At:         s.now(),
	}, nil
}

func (s *Sampler) fault(err error) {
	s.mu.Lock()
	s.faulted = true
	n := len(s.samples)
	s.mu.Unlock()
	s.log.Warn("sampler: collection stopped", "err", err, "samples", n)
}

func (s *Sampler) averages() Averages {
	s.mu.Lock()
	defer s.mu.Unlock()

	avg := Averages{Samples: len(s.samples), Faulted: s.faulted}
	if len(s.samples) == 0 {
		return avg
	}
	var cpu, mem float64
	for _, smp := range s.samples {
		cpu += smp.CPUPercent
		mem += smp.MemoryGB
	}
	n := float64(len(s.samples))
	avg.CPUPercent = cpu / n
	avg.MemoryGB = mem / n
	return avg
}

func clampPercent(x float64) float64 {
	if !(x > 0) {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}
