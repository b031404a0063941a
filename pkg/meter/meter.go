// Package meter runs a workload while sampling host utilization and turns the
// result into a carbon Measurement.
package meter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ja7ad/greenpipeline/pkg/consumption"
	"github.com/ja7ad/greenpipeline/pkg/intensity"
	"github.com/ja7ad/greenpipeline/pkg/runner"
	"github.com/ja7ad/greenpipeline/pkg/sampler"
	"github.com/ja7ad/greenpipeline/pkg/types"
)

// Recorder persists measurements; *history.Store implements it.
type Recorder interface {
	Append(types.Measurement) error
}

// Observer is notified of every completed measurement (metrics export).
type Observer interface {
	Observe(types.Measurement)
}

// Resolver maps a location code to a carbon intensity; *intensity.Resolver
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, zone string) intensity.Profile
}

// RunOptions controls a single Run.
type RunOptions struct {
	// Record appends the measurement to the configured Recorder.
	Record bool
}

// Meter drives one workload execution per Run.
type Meter struct {
	cfg      consumption.Config
	exec     runner.Executor
	resolver Resolver
	source   sampler.Source

	interval    time.Duration
	joinTimeout time.Duration
	recorder    Recorder
	observers   []Observer
	log         *slog.Logger
	now         func() time.Time
	newID       func() string
}

// Option configures a Meter.
type Option func(*Meter)

// WithRecorder sets where Run stores measurements when RunOptions.Record is set.
func WithRecorder(r Recorder) Option { return func(m *Meter) { m.recorder = r } }

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(m *Meter) {
		if o != nil {
			m.observers = append(m.observers, o)
		}
	}
}

// WithSampling sets the sampler cadence and join bound.
func WithSampling(interval, joinTimeout time.Duration) Option {
	return func(m *Meter) {
		m.interval = interval
		m.joinTimeout = joinTimeout
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Meter) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(m *Meter) { m.now = now } }

// New returns a Meter. A nil resolver uses the built-in static table.
func New(cfg consumption.Config, exec runner.Executor, resolver Resolver, src sampler.Source, opts ...Option) *Meter {
	m := &Meter{
		cfg:         cfg,
		exec:        exec,
		resolver:    resolver,
		source:      src,
		interval:    sampler.DefaultInterval,
		joinTimeout: sampler.DefaultJoinTimeout,
		log:         slog.Default(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	if m.resolver == nil {
		m.resolver = intensity.NewResolver(intensity.WithLogger(m.log))
	}
	return m
}

// Config returns the power model in use.
func (m *Meter) Config() consumption.Config { return m.cfg }

// Run executes command, samples utilization for its duration, and returns the
// resulting Measurement. A failing workload still yields a Measurement with
// Success=false; the error return is reserved for problems of the meter
// itself (bad input, history write failure). When a history write fails the
// Measurement is still returned alongside the error.
func (m *Meter) Run(ctx context.Context, command, location string, o RunOptions) (types.Measurement, error) {
	if strings.TrimSpace(command) == "" {
		return types.Measurement{}, ErrNoCommand
	}
	if m.exec == nil {
		return types.Measurement{}, ErrNoExecutor
	}

	prof := m.resolver.Resolve(ctx, location)
	m.log.Debug("carbon intensity resolved",
		"zone", prof.Location, "intensity", prof.Intensity, "source", prof.Source)

	s := sampler.New(m.source,
		sampler.WithInterval(m.interval),
		sampler.WithJoinTimeout(m.joinTimeout),
		sampler.WithLogger(m.log),
	)
	started := m.now()
	if err := s.Start(ctx); err != nil {
		// measure anyway; the footprint falls back to idle power
		m.log.Warn("sampler not started", "err", err)
	}

	res := m.exec.Execute(ctx, command)
	avg := s.Stop()

	meas := m.build(started, command, prof, res, avg)
	m.notify(meas)

	if o.Record && m.recorder != nil {
		if err := m.recorder.Append(meas); err != nil {
			return meas, fmt.Errorf("%w: %w", ErrRecord, err)
		}
	}
	return meas, nil
}

// Metrics are externally collected utilization figures.
type Metrics struct {
	Duration   time.Duration
	CPUPercent float64
	MemoryMB   float64
}

// EstimateFromMetrics builds a Measurement from metrics an integration
// already has, without executing anything. It shares the conversion with Run.
func (m *Meter) EstimateFromMetrics(ctx context.Context, label, location string, mt Metrics) types.Measurement {
	prof := m.resolver.Resolve(ctx, location)
	res := runner.Result{Success: true, Duration: mt.Duration}
	avg := sampler.Averages{CPUPercent: mt.CPUPercent, MemoryGB: mt.MemoryMB / 1024}
	meas := m.build(m.now(), label, prof, res, avg)
	m.notify(meas)
	return meas
}

func (m *Meter) build(at time.Time, command string, prof intensity.Profile, res runner.Result, avg sampler.Averages) types.Measurement {
	dur := res.Duration.Seconds()
	if dur < 0 {
		dur = 0
	}
	// record what the model actually used
	cpu := percent(avg.CPUPercent)
	memGB := gigabytes(avg.MemoryGB)
	fp := consumption.Estimate(m.cfg, consumption.Input{
		DurationSec: dur,
		CPUPercent:  cpu,
		MemoryGB:    memGB,
		Intensity:   prof.Intensity,
	})

	return types.Measurement{
		ID:                m.newID(),
		Timestamp:         at.UTC(),
		Command:           command,
		Location:          prof.Location,
		Success:           res.Success,
		ExitCode:          res.ExitCode,
		Output:            res.Output,
		DurationSec:       dur,
		Samples:           avg.Samples,
		CPUPercentAvg:     cpu,
		MemoryMBAvg:       memGB * 1024,
		PowerWatts:        fp.PowerWatts,
		EnergyJoules:      fp.EnergyJoules,
		EnergyKWh:         fp.EnergyKWh,
		CarbonGrams:       fp.CarbonGrams,
		CarbonIntensity:   fp.Intensity,
		SCIScore:          fp.SCIScore,
		SmartphoneCharges: fp.SmartphoneCharges,
		KmDriven:          fp.KmDriven,
	}
}

func (m *Meter) notify(meas types.Measurement) {
	for _, o := range m.observers {
		o.Observe(meas)
	}
}

// percent maps NaN and negatives to 0 and caps at 100.
func percent(x float64) float64 {
	if !(x > 0) {
		return 0
	}
	return math.Min(x, 100)
}

// gigabytes maps NaN, negatives and +Inf to 0.
func gigabytes(x float64) float64 {
	if !(x > 0) || math.IsInf(x, 1) {
		return 0
	}
	return x
}
