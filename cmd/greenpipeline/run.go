//go:build linux

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ja7ad/greenpipeline/pkg/meter"
	"github.com/spf13/cobra"
)

type runOpts struct {
	location  string
	noHistory bool
}

func newRunCmd(g *globalOpts) *cobra.Command {
	var o runOpts

	cmd := &cobra.Command{
		Use:   "run [flags] <command> [args...]",
		Short: "Run a command and measure its footprint",
		Long: `Run executes the command through "sh -c", samples host CPU and memory every
100ms while it runs and prints energy, emissions and everyday equivalents.

Flags for greenpipeline go before the command; anything after it is passed
to the workload, so "greenpipeline run ls -la" measures "ls -la".

The exit status of greenpipeline does not follow the workload: a failing
command is still measured and recorded with success=false.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(g)
			if err != nil {
				return err
			}
			defer a.close()

			m, err := a.meter()
			if err != nil {
				return err
			}

			command := strings.Join(args, " ")
			location := a.cfg.Intensity.Location
			if cmd.Flags().Changed("location") {
				location = o.location
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "GreenPipeline - measuring: %s\n", command)
			fmt.Fprintln(out, _rule)
			fmt.Fprintf(out, "Location: %s\n", location)

			meas, err := m.Run(cmd.Context(), command, location, meter.RunOptions{Record: !o.noHistory})
			if err != nil && !errors.Is(err, meter.ErrRecord) {
				return err
			}
			printResult(out, meas)
			a.flush(cmd.Context())

			if err != nil {
				return err
			}
			if !o.noHistory {
				fmt.Fprintf(out, "Saved to: %s\n", a.store.Path())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&o.location, "location", "l", "GLOBAL", "grid location code (CO, DE, US-CA, FR, ...)")
	cmd.Flags().BoolVar(&o.noHistory, "no-history", false, "do not record the measurement")
	// everything after the command belongs to the workload
	cmd.Flags().SetInterspersed(false)
	return cmd
}
