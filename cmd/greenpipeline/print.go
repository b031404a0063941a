//go:build linux

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ja7ad/greenpipeline/pkg/compare"
	"github.com/ja7ad/greenpipeline/pkg/consumption"
	"github.com/ja7ad/greenpipeline/pkg/history"
	"github.com/ja7ad/greenpipeline/pkg/types"
)

const (
	_outputTail  = 5
	_outputWidth = 70
	_rule        = "============================================================"
)

func printResult(w io.Writer, m types.Measurement) {
	status := "success"
	if !m.Success {
		status = fmt.Sprintf("failed (exit %d)", m.ExitCode)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, _rule)
	fmt.Fprintln(w, "RESULTS")
	fmt.Fprintln(w, _rule)
	fmt.Fprintf(w, "\nStatus:    %s\n", status)
	fmt.Fprintf(w, "Duration:  %.2f s (%d samples)\n", m.DurationSec, m.Samples)

	fmt.Fprintln(w, "\nResources:")
	fmt.Fprintf(w, "   CPU:    %.1f%%\n", m.CPUPercentAvg)
	fmt.Fprintf(w, "   RAM:    %.0f MB\n", m.MemoryMBAvg)
	fmt.Fprintf(w, "   Power:  %.2f W\n", m.PowerWatts)

	fmt.Fprintln(w, "\nEnergy:")
	fmt.Fprintf(w, "   Joules: %.2f\n", m.EnergyJoules)
	fmt.Fprintf(w, "   kWh:    %.6f\n", m.EnergyKWh)

	fmt.Fprintln(w, "\nEmissions:")
	fmt.Fprintf(w, "   CO2e:   %.4f g\n", m.CarbonGrams)
	fmt.Fprintf(w, "   Grid:   %g g/kWh (%s)\n", m.CarbonIntensity, m.Location)
	fmt.Fprintf(w, "   SCI:    %.4f gCO2e per run\n", m.SCIScore)

	fmt.Fprintln(w, "\nEquivalent to:")
	fmt.Fprintf(w, "   %.1f smartphone charges\n", m.SmartphoneCharges)
	fmt.Fprintf(w, "   %.3f km driven\n", m.KmDriven)

	if lines := tailLines(m.Output, _outputTail, _outputWidth); len(lines) > 0 {
		fmt.Fprintf(w, "\nOutput (last %d lines):\n", _outputTail)
		for _, l := range lines {
			fmt.Fprintf(w, "   %s\n", l)
		}
	}
	fmt.Fprintln(w, _rule)
}

// tailLines returns at most n trailing lines of s, each cut to width runes.
func tailLines(s string, n, width int) []string {
	s = strings.TrimSpace(s)
	if s == "" || n <= 0 {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, l := range lines {
		l = strings.TrimRight(l, "\r")
		if r := []rune(l); len(r) > width {
			l = string(r[:width])
		}
		lines[i] = l
	}
	return lines
}

func printHistory(w io.Writer, recent []types.Measurement, total history.Aggregate) {
	if total.Count == 0 {
		fmt.Fprintln(w, "No history yet.")
		return
	}

	fmt.Fprintf(w, "\nHISTORY (last %d runs)\n", len(recent))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCOMMAND\tLOCATION\tSTATUS\tDURATION\tCO2e (g)")
	fmt.Fprintln(tw, "----\t-------\t--------\t------\t--------\t--------")
	for _, m := range recent {
		status := "ok"
		if !m.Success {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1fs\t%.4f\n",
			m.Timestamp.Local().Format(time.DateTime), truncate(m.Command, 30), m.Location,
			status, m.DurationSec, m.CarbonGrams)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total runs:        %d (%d failed)\n", total.Count, total.Failed)
	fmt.Fprintf(w, "Total emissions:   %.2f g CO2e\n", total.TotalCarbonGrams)
	fmt.Fprintf(w, "Total energy:      %.0f J\n", total.TotalEnergyJoules)
	fmt.Fprintf(w, "Equivalent to:     %.0f smartphone charges\n",
		consumption.SmartphoneCharges(total.TotalCarbonGrams))
}

func printComparison(w io.Writer, rep compare.Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EMISSIONS BY LOCATION")
	fmt.Fprintf(w, "Command: %s\n", rep.Command)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCATION\tZONE\tGRID (g/kWh)\tCO2e (g)\tVS BASELINE")
	fmt.Fprintln(tw, "--------\t----\t------------\t--------\t-----------")
	for _, e := range rep.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%.4f\t%+.1f%%\n",
			e.Location.Name, e.Location.Code, e.Measurement.CarbonIntensity,
			e.Measurement.CarbonGrams, e.DeltaPercent)
	}
	tw.Flush()

	if best, ok := rep.Best(); ok {
		fmt.Fprintf(w, "\nLowest emissions: %s (%s)\n", best.Location.Name, best.Location.Code)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
