package meter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ja7ad/greenpipeline/pkg/consumption"
	"github.com/ja7ad/greenpipeline/pkg/history"
	"github.com/ja7ad/greenpipeline/pkg/intensity"
	"github.com/ja7ad/greenpipeline/pkg/runner"
	"github.com/ja7ad/greenpipeline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type steadySource struct {
	cpu   float64
	mem   types.Bytes
	calls atomic.Int32
}

func (s *steadySource) CPUPercent() (float64, error) {
	s.calls.Add(1)
	return s.cpu, nil
}
func (s *steadySource) MemoryUsed() (types.Bytes, error) { return s.mem, nil }

type brokenSource struct{}

func (brokenSource) CPUPercent() (float64, error)     { return 0, errors.New("no procfs") }
func (brokenSource) MemoryUsed() (types.Bytes, error) { return 0, errors.New("no procfs") }

// sleeper runs for wall time (so the sampler gets ticks) but reports the
// given duration so energy figures stay deterministic.
func sleeper(wall, reported time.Duration, res runner.Result) runner.Executor {
	return runner.ExecutorFunc(func(ctx context.Context, _ string) runner.Result {
		select {
		case <-time.After(wall):
		case <-ctx.Done():
		}
		res.Duration = reported
		return res
	})
}

type memRecorder struct{ got []types.Measurement }

func (r *memRecorder) Append(m types.Measurement) error {
	r.got = append(r.got, m)
	return nil
}

type failRecorder struct{}

func (failRecorder) Append(types.Measurement) error { return errors.New("disk full") }

type obs struct{ n int }

func (o *obs) Observe(types.Measurement) { o.n++ }

func staticResolver() *intensity.Resolver {
	return intensity.NewResolver(intensity.WithLogger(quiet))
}

func newMeter(exec runner.Executor, src *steadySource, opts ...Option) *Meter {
	opts = append([]Option{WithSampling(5*time.Millisecond, time.Second), WithLogger(quiet)}, opts...)
	return New(consumption.ProfileFor("x86_64"), exec, staticResolver(), src, opts...)
}

func TestRun_SampledMeasurement(t *testing.T) {
	src := &steadySource{cpu: 50, mem: 1 << 30}
	exec := sleeper(60*time.Millisecond, 10*time.Second,
		runner.Result{Success: true, ExitCode: 0, Output: "ok"})
	rec := &memRecorder{}
	o := &obs{}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	m := newMeter(exec, src, WithRecorder(rec), WithObserver(o), WithClock(func() time.Time { return fixed }))
	got, err := m.Run(context.Background(), "make test", "de", RunOptions{Record: true})
	require.NoError(t, err)

	_, perr := uuid.Parse(got.ID)
	require.NoError(t, perr)
	assert.Equal(t, fixed.UTC(), got.Timestamp)
	assert.Equal(t, time.UTC, got.Timestamp.Location())
	assert.Equal(t, "make test", got.Command)
	assert.Equal(t, "DE", got.Location)
	assert.True(t, got.Success)
	assert.Equal(t, "ok", got.Output)
	assert.Greater(t, got.Samples, 0)

	// 65*(0.5*0.6+0.4) + 1*0.375
	assert.InDelta(t, 50.0, got.CPUPercentAvg, 1e-9)
	assert.InDelta(t, 1024.0, got.MemoryMBAvg, 1e-9)
	assert.InDelta(t, 45.875, got.PowerWatts, 1e-9)
	assert.InDelta(t, 458.75, got.EnergyJoules, 1e-9)
	assert.InDelta(t, 458.75/3.6e6, got.EnergyKWh, 1e-15)
	assert.Equal(t, 420.0, got.CarbonIntensity)
	assert.Equal(t, got.EnergyKWh*420, got.CarbonGrams)
	assert.Equal(t, got.CarbonGrams, got.SCIScore)

	require.Len(t, rec.got, 1)
	assert.Equal(t, got, rec.got[0])
	assert.Equal(t, 1, o.n)
}

func TestRun_FailedWorkloadStillMeasured(t *testing.T) {
	src := &steadySource{cpu: 10, mem: 1 << 29}
	exec := sleeper(20*time.Millisecond, 2*time.Second,
		runner.Result{Success: false, ExitCode: 3, Output: "boom"})
	rec := &memRecorder{}

	got, err := newMeter(exec, src, WithRecorder(rec)).
		Run(context.Background(), "false", "FR", RunOptions{Record: true})
	require.NoError(t, err)
	assert.False(t, got.Success)
	assert.Equal(t, 3, got.ExitCode)
	assert.Equal(t, "boom", got.Output)
	assert.Greater(t, got.CarbonGrams, 0.0)
	require.Len(t, rec.got, 1)
	assert.False(t, rec.got[0].Success)
}

func TestRun_NoSamplesUsesIdlePower(t *testing.T) {
	// the command finishes before the first tick
	exec := runner.ExecutorFunc(func(context.Context, string) runner.Result {
		return runner.Result{Success: true, Duration: 4 * time.Second}
	})
	m := New(consumption.ProfileFor("aarch64"), exec, staticResolver(), &steadySource{cpu: 90},
		WithSampling(time.Hour, time.Second), WithLogger(quiet))

	got, err := m.Run(context.Background(), "true", "", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Samples)
	assert.Equal(t, 0.0, got.CPUPercentAvg)
	assert.Equal(t, 0.0, got.MemoryMBAvg)
	assert.InDelta(t, 15*0.4, got.PowerWatts, 1e-9)
	assert.InDelta(t, 24.0, got.EnergyJoules, 1e-9)
	assert.Equal(t, intensity.GlobalZone, got.Location)
	assert.Equal(t, consumption.DefaultIntensity, got.CarbonIntensity)
}

func TestRun_SamplerFaultIsContained(t *testing.T) {
	exec := sleeper(30*time.Millisecond, time.Second, runner.Result{Success: true})
	m := New(consumption.ProfileFor("x86_64"), exec, staticResolver(), brokenSource{},
		WithSampling(5*time.Millisecond, time.Second), WithLogger(quiet))

	got, err := m.Run(context.Background(), "true", "CO", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Samples)
	assert.InDelta(t, 26.0, got.PowerWatts, 1e-9)
	assert.Equal(t, 165.0, got.CarbonIntensity)
}

func TestRun_NoRecordSkipsHistory(t *testing.T) {
	rec := &memRecorder{}
	exec := sleeper(0, time.Second, runner.Result{Success: true})
	_, err := newMeter(exec, &steadySource{}, WithRecorder(rec)).
		Run(context.Background(), "true", "DE", RunOptions{Record: false})
	require.NoError(t, err)
	assert.Empty(t, rec.got)
}

func TestRun_RecordFailureReturnsMeasurement(t *testing.T) {
	exec := sleeper(0, time.Second, runner.Result{Success: true})
	got, err := newMeter(exec, &steadySource{}, WithRecorder(failRecorder{})).
		Run(context.Background(), "true", "DE", RunOptions{Record: true})
	require.ErrorIs(t, err, ErrRecord)
	assert.NotEmpty(t, got.ID)
}

func TestRun_WithHistoryStore(t *testing.T) {
	store := history.New(filepath.Join(t.TempDir(), "h.json"), 0)
	exec := sleeper(0, time.Second, runner.Result{Success: true})
	m := newMeter(exec, &steadySource{cpu: 20}, WithRecorder(store))

	for i := 0; i < 3; i++ {
		_, err := m.Run(context.Background(), "true", "GB", RunOptions{Record: true})
		require.NoError(t, err)
	}
	all, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "GB", all[0].Location)
	assert.Equal(t, 230.0, all[0].CarbonIntensity)
}

func TestRun_BadInput(t *testing.T) {
	_, err := newMeter(nil, &steadySource{}).Run(context.Background(), "  ", "DE", RunOptions{})
	require.ErrorIs(t, err, ErrNoCommand)

	_, err = New(consumption.ProfileFor(""), nil, nil, nil).Run(context.Background(), "true", "", RunOptions{})
	require.ErrorIs(t, err, ErrNoExecutor)
}

func TestEstimateFromMetrics_MatchesRunPath(t *testing.T) {
	cfg := consumption.ProfileFor("x86_64")
	m := New(cfg, nil, staticResolver(), nil, WithLogger(quiet))

	got := m.EstimateFromMetrics(context.Background(), "ci job", "US-CA", Metrics{
		Duration:   10 * time.Second,
		CPUPercent: 50,
		MemoryMB:   1024,
	})
	want := consumption.Estimate(cfg, consumption.Input{
		DurationSec: 10, CPUPercent: 50, MemoryGB: 1, Intensity: 389,
	})
	assert.Equal(t, want.PowerWatts, got.PowerWatts)
	assert.Equal(t, want.CarbonGrams, got.CarbonGrams)
	assert.Equal(t, want.KmDriven, got.KmDriven)
	assert.Equal(t, "ci job", got.Command)
	assert.True(t, got.Success)
	assert.Equal(t, 0, got.Samples)
}

func TestEstimateFromMetrics_OutOfRangeInputsAreClamped(t *testing.T) {
	cfg := consumption.ProfileFor("x86_64")
	m := New(cfg, nil, staticResolver(), nil, WithLogger(quiet))
	store := history.New(filepath.Join(t.TempDir(), "h.json"), 0)

	cases := []struct {
		name    string
		cpu     float64
		memMB   float64
		wantCPU float64
		wantMB  float64
	}{
		{name: "cpu_nan", cpu: math.NaN(), memMB: 1024, wantCPU: 0, wantMB: 1024},
		{name: "cpu_above_100", cpu: 150, memMB: 1024, wantCPU: 100, wantMB: 1024},
		{name: "cpu_inf", cpu: math.Inf(1), memMB: 0, wantCPU: 100, wantMB: 0},
		{name: "cpu_negative", cpu: -5, memMB: 0, wantCPU: 0, wantMB: 0},
		{name: "mem_inf", cpu: 50, memMB: math.Inf(1), wantCPU: 50, wantMB: 0},
		{name: "mem_nan", cpu: 50, memMB: math.NaN(), wantCPU: 50, wantMB: 0},
		{name: "mem_negative", cpu: 50, memMB: -100, wantCPU: 50, wantMB: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := m.EstimateFromMetrics(context.Background(), "ci", "DE", Metrics{
				Duration:   10 * time.Second,
				CPUPercent: tc.cpu,
				MemoryMB:   tc.memMB,
			})
			assert.Equal(t, tc.wantCPU, got.CPUPercentAvg)
			assert.InDelta(t, tc.wantMB, got.MemoryMBAvg, 1e-9)

			// the stored averages are the ones the power model saw
			want := consumption.Estimate(cfg, consumption.Input{
				DurationSec: 10, CPUPercent: tc.wantCPU, MemoryGB: tc.wantMB / 1024, Intensity: 420,
			})
			assert.InDelta(t, want.PowerWatts, got.PowerWatts, 1e-9)
			for _, v := range []float64{got.PowerWatts, got.EnergyJoules, got.CarbonGrams, got.KmDriven} {
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "non-finite value %v", v)
				assert.GreaterOrEqual(t, v, 0.0)
			}

			require.NoError(t, store.Append(got))
		})
	}

	all, err := store.List(0)
	require.NoError(t, err)
	assert.Len(t, all, len(cases))
}
