// Package compare runs one workload under several grid locations and reports
// each run's carbon relative to the first.
package compare

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ja7ad/greenpipeline/pkg/intensity"
	"github.com/ja7ad/greenpipeline/pkg/meter"
	"github.com/ja7ad/greenpipeline/pkg/types"
)

// DefaultPause is the wait between consecutive runs.
const DefaultPause = time.Second

// Runner measures one execution; *meter.Meter implements it.
type Runner interface {
	Run(ctx context.Context, command, location string, o meter.RunOptions) (types.Measurement, error)
}

// Entry is one location's result.
type Entry struct {
	Location     intensity.Location
	Measurement  types.Measurement
	DeltaPercent float64
}

// Report is the outcome of a comparison. Entries follow the input order; the
// first one is the baseline.
type Report struct {
	Command string
	Entries []Entry
}

// Baseline returns the first entry.
func (r Report) Baseline() (Entry, bool) {
	if len(r.Entries) == 0 {
		return Entry{}, false
	}
	return r.Entries[0], true
}

// Best returns the entry with the lowest carbon.
func (r Report) Best() (Entry, bool) {
	if len(r.Entries) == 0 {
		return Entry{}, false
	}
	best := r.Entries[0]
	for _, e := range r.Entries[1:] {
		if e.Measurement.CarbonGrams < best.Measurement.CarbonGrams {
			best = e
		}
	}
	return best, true
}

// Comparator drives a Runner across locations.
type Comparator struct {
	runner Runner
	pause  time.Duration
	log    *slog.Logger
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithPause sets the wait between runs; zero disables it.
func WithPause(d time.Duration) Option {
	return func(c *Comparator) {
		if d >= 0 {
			c.pause = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Comparator) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Comparator.
func New(r Runner, opts ...Option) *Comparator {
	c := &Comparator{runner: r, pause: DefaultPause, log: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compare runs command once per location without recording history. A nil
// or empty locations list uses intensity.DefaultLocations. On cancellation
// the entries collected so far are returned with the context error.
func (c *Comparator) Compare(ctx context.Context, command string, locations []intensity.Location) (Report, error) {
	if c.runner == nil {
		return Report{}, ErrNoRunner
	}
	if len(locations) == 0 {
		locations = intensity.DefaultLocations
	}

	rep := Report{Command: command, Entries: make([]Entry, 0, len(locations))}
	for i, loc := range locations {
		if i > 0 && c.pause > 0 {
			if err := sleep(ctx, c.pause); err != nil {
				return finish(rep), err
			}
		}
		c.log.Info("comparing location", "name", loc.Name, "zone", loc.Code,
			"run", i+1, "of", len(locations))

		m, err := c.runner.Run(ctx, command, loc.Code, meter.RunOptions{Record: false})
		if err != nil {
			return finish(rep), fmt.Errorf("%w: %s: %w", ErrRun, loc.Code, err)
		}
		rep.Entries = append(rep.Entries, Entry{Location: loc, Measurement: m})
	}
	return finish(rep), nil
}

// Delta returns the percentage change of c relative to base; 0 when base is 0.
func Delta(base, c float64) float64 {
	if base == 0 {
		return 0
	}
	return (c - base) / base * 100
}

func finish(r Report) Report {
	base, ok := r.Baseline()
	if !ok {
		return r
	}
	for i := range r.Entries {
		r.Entries[i].DeltaPercent = Delta(base.Measurement.CarbonGrams, r.Entries[i].Measurement.CarbonGrams)
	}
	return r
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
