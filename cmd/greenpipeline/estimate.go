//go:build linux

package main

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ja7ad/greenpipeline/pkg/meter"
	"github.com/spf13/cobra"
)

type estimateOpts struct {
	duration time.Duration
	cpu      float64
	memoryMB float64
	location string
	label    string
	record   bool
}

func newEstimateCmd(g *globalOpts) *cobra.Command {
	var o estimateOpts

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate emissions from metrics collected elsewhere",
		Long: `Estimate applies the same power, energy and carbon model as "run" to a
duration, average CPU utilization and average memory supplied by another
tool (for example a CI provider's job statistics). Nothing is executed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.duration <= 0 {
				return errors.New("duration must be > 0")
			}
			if !(o.cpu >= 0 && o.cpu <= 100) {
				return errors.New("cpu must be in [0,100]")
			}
			if !(o.memoryMB >= 0) || math.IsInf(o.memoryMB, 1) {
				return errors.New("memory-mb must be a finite value >= 0")
			}

			a, err := newApp(g)
			if err != nil {
				return err
			}
			defer a.close()

			location := a.cfg.Intensity.Location
			if cmd.Flags().Changed("location") {
				location = o.location
			}

			m := meter.New(a.power, nil, a.resolver, nil,
				meter.WithObserver(a.exporter), meter.WithLogger(a.log))
			meas := m.EstimateFromMetrics(cmd.Context(), o.label, location, meter.Metrics{
				Duration:   o.duration,
				CPUPercent: o.cpu,
				MemoryMB:   o.memoryMB,
			})

			out := cmd.OutOrStdout()
			printResult(out, meas)
			a.flush(cmd.Context())

			if o.record {
				if err := a.store.Append(meas); err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved to: %s\n", a.store.Path())
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&o.duration, "duration", "d", 0, "workload duration (e.g. 90s, 12m)")
	cmd.Flags().Float64Var(&o.cpu, "cpu", 0, "average CPU utilization in percent")
	cmd.Flags().Float64Var(&o.memoryMB, "memory-mb", 0, "average memory in MB")
	cmd.Flags().StringVarP(&o.location, "location", "l", "GLOBAL", "grid location code")
	cmd.Flags().StringVar(&o.label, "label", "estimate", "command label stored with the measurement")
	cmd.Flags().BoolVar(&o.record, "record", false, "append the estimate to history")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}
