// Package report renders measurement history and location comparisons as a
// self-contained HTML page of go-echarts charts.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/ja7ad/greenpipeline/pkg/compare"
	"github.com/ja7ad/greenpipeline/pkg/history"
	"github.com/ja7ad/greenpipeline/pkg/types"
)

const _labelLayout = "01-02 15:04:05"

// History writes one page with carbon, energy and utilization charts, one
// point per run in chronological order.
func History(w io.Writer, ms []types.Measurement) error {
	if len(ms) == 0 {
		return ErrEmpty
	}

	agg := history.Summarize(ms)
	page := components.NewPage()
	page.PageTitle = "greenpipeline history"

	labels := make([]string, len(ms))
	carbon := make([]opts.LineData, len(ms))
	energy := make([]opts.BarData, len(ms))
	cpu := make([]opts.LineData, len(ms))
	mem := make([]opts.LineData, len(ms))
	for i, m := range ms {
		labels[i] = m.Timestamp.Local().Format(_labelLayout)
		carbon[i] = opts.LineData{Value: m.CarbonGrams, Name: m.Command}
		energy[i] = opts.BarData{Value: m.EnergyJoules, Name: m.Command}
		cpu[i] = opts.LineData{Value: m.CPUPercentAvg}
		mem[i] = opts.LineData{Value: m.MemoryMBAvg}
	}

	carbonLine := newLine("Carbon per run (gCO2e)",
		fmt.Sprintf("%d runs, %.4f g total, %d failed", agg.Count, agg.TotalCarbonGrams, agg.Failed))
	carbonLine.SetXAxis(labels).AddSeries("carbon", carbon,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(true)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.2)}),
	)

	energyBar := newBar("Energy per run (J)", fmt.Sprintf("%.1f J total", agg.TotalEnergyJoules))
	energyBar.SetXAxis(labels).AddSeries("energy", energy)

	util := newLine("Average utilization", "")
	util.SetGlobalOptions(charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}))
	util.SetXAxis(labels).
		AddSeries("cpu %", cpu).
		AddSeries("memory MB", mem)

	page.AddCharts(carbonLine, energyBar, util)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

// Comparison writes a bar chart of carbon per location.
func Comparison(w io.Writer, rep compare.Report) error {
	if len(rep.Entries) == 0 {
		return ErrEmpty
	}

	page := components.NewPage()
	page.PageTitle = "greenpipeline compare"

	labels := make([]string, len(rep.Entries))
	carbon := make([]opts.BarData, len(rep.Entries))
	for i, e := range rep.Entries {
		labels[i] = e.Location.Name + " (" + e.Location.Code + ")"
		carbon[i] = opts.BarData{
			Value: e.Measurement.CarbonGrams,
			Name:  strconv.FormatFloat(e.DeltaPercent, 'f', 1, 64) + "%",
		}
	}

	bar := newBar("Carbon by location (gCO2e)", rep.Command)
	bar.SetXAxis(labels).AddSeries("carbon", carbon)
	page.AddCharts(bar)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

func newLine(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)
	return line
}

func newBar(title, subtitle string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)
	return bar
}
