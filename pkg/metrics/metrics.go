// Package metrics exports measurements as Prometheus series, either scraped
// from an HTTP handler or pushed to a Pushgateway at the end of a CI job.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ja7ad/greenpipeline/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway job name.
const DefaultJob = "greenpipeline"

// Exporter holds the measurement series on its own registry. It implements
// meter.Observer.
type Exporter struct {
	reg *prometheus.Registry

	// RunsTotal counts measured runs.
	RunsTotal *prometheus.CounterVec
	// CarbonGramsTotal accumulates emissions per location.
	CarbonGramsTotal *prometheus.CounterVec
	// EnergyJoulesTotal accumulates energy per location.
	EnergyJoulesTotal *prometheus.CounterVec
	// RunDuration is the workload wall time.
	RunDuration *prometheus.HistogramVec
	// LastCarbonGrams is the carbon of the latest run.
	LastCarbonGrams *prometheus.GaugeVec
	// LastPowerWatts is the modelled power of the latest run.
	LastPowerWatts *prometheus.GaugeVec
	// LastCPUPercent is the average CPU of the latest run.
	LastCPUPercent *prometheus.GaugeVec
	// CarbonIntensity is the grid intensity last used per location.
	CarbonIntensity *prometheus.GaugeVec
}

// NewExporter builds and registers the series.
func NewExporter() *Exporter {
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greenpipeline_runs_total",
				Help: "Total number of measured runs",
			},
			[]string{"location", "success"},
		),
		CarbonGramsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greenpipeline_carbon_grams_total",
				Help: "Cumulative estimated emissions in gCO2e",
			},
			[]string{"location"},
		),
		EnergyJoulesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greenpipeline_energy_joules_total",
				Help: "Cumulative estimated energy in joules",
			},
			[]string{"location"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "greenpipeline_run_duration_seconds",
				Help:    "Workload duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"location"},
		),
		LastCarbonGrams: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "greenpipeline_last_carbon_grams",
				Help: "Estimated emissions of the latest run in gCO2e",
			},
			[]string{"location", "command"},
		),
		LastPowerWatts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "greenpipeline_last_power_watts",
				Help: "Modelled power draw of the latest run",
			},
			[]string{"location", "command"},
		),
		LastCPUPercent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "greenpipeline_last_cpu_percent",
				Help: "Average CPU utilization of the latest run",
			},
			[]string{"location", "command"},
		),
		CarbonIntensity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "greenpipeline_carbon_intensity_grams_per_kwh",
				Help: "Grid carbon intensity used for the latest run",
			},
			[]string{"location"},
		),
	}
	e.reg.MustRegister(
		e.RunsTotal, e.CarbonGramsTotal, e.EnergyJoulesTotal, e.RunDuration,
		e.LastCarbonGrams, e.LastPowerWatts, e.LastCPUPercent, e.CarbonIntensity,
	)
	return e
}

// Registry returns the registry backing the exporter.
func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// Observe records one measurement.
func (e *Exporter) Observe(m types.Measurement) {
	loc := m.Location
	e.RunsTotal.WithLabelValues(loc, strconv.FormatBool(m.Success)).Inc()
	e.CarbonGramsTotal.WithLabelValues(loc).Add(nonNeg(m.CarbonGrams))
	e.EnergyJoulesTotal.WithLabelValues(loc).Add(nonNeg(m.EnergyJoules))
	e.RunDuration.WithLabelValues(loc).Observe(m.DurationSec)
	e.LastCarbonGrams.WithLabelValues(loc, m.Command).Set(m.CarbonGrams)
	e.LastPowerWatts.WithLabelValues(loc, m.Command).Set(m.PowerWatts)
	e.LastCPUPercent.WithLabelValues(loc, m.Command).Set(m.CPUPercentAvg)
	e.CarbonIntensity.WithLabelValues(loc).Set(m.CarbonIntensity)
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{})
}

// Push sends the current series to a Pushgateway under job, replacing the
// previous push for the same grouping.
func (e *Exporter) Push(ctx context.Context, url, job string, grouping map[string]string) error {
	if url == "" {
		return ErrNoGateway
	}
	if job == "" {
		job = DefaultJob
	}
	p := push.New(url, job).Gatherer(e.reg)
	for k, v := range grouping {
		p = p.Grouping(k, v)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPush, err)
	}
	return nil
}

// counters reject negative increments
func nonNeg(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	return v
}
