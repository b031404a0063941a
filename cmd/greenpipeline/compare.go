//go:build linux

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ja7ad/greenpipeline/pkg/compare"
	"github.com/ja7ad/greenpipeline/pkg/intensity"
	"github.com/ja7ad/greenpipeline/pkg/meter"
	"github.com/ja7ad/greenpipeline/pkg/report"
	"github.com/ja7ad/greenpipeline/pkg/types"
	"github.com/spf13/cobra"
)

type compareOpts struct {
	locations []string
	pause     time.Duration
	html      string
}

// printingRunner shows each run's result block as the comparison progresses.
type printingRunner struct {
	next compare.Runner
	out  io.Writer
}

func (p printingRunner) Run(ctx context.Context, command, location string, o meter.RunOptions) (types.Measurement, error) {
	fmt.Fprintf(p.out, "\nLocation: %s\n", location)
	m, err := p.next.Run(ctx, command, location, o)
	if err == nil {
		printResult(p.out, m)
	}
	return m, err
}

func newCompareCmd(g *globalOpts) *cobra.Command {
	var o compareOpts

	cmd := &cobra.Command{
		Use:   "compare [flags] <command> [args...]",
		Short: "Run a command once per grid location and compare emissions",
		Long: `Compare runs the command once for each location (default Colombia, Germany,
California, France) without recording history and reports each run's
emissions relative to the first location.

Locations are given as CODE or Name=CODE. Flags go before the command:
  greenpipeline compare -L CO -L Poland=PL -L FR make build`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locs, err := parseLocations(o.locations)
			if err != nil {
				return err
			}

			a, err := newApp(g)
			if err != nil {
				return err
			}
			defer a.close()

			m, err := a.meter()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			command := strings.Join(args, " ")
			fmt.Fprintln(out, "COMPARISON BY LOCATION")
			fmt.Fprintf(out, "Command: %s\n", command)
			fmt.Fprintln(out, _rule)

			c := compare.New(printingRunner{next: m, out: out},
				compare.WithPause(o.pause), compare.WithLogger(a.log))
			rep, err := c.Compare(cmd.Context(), command, locs)
			if len(rep.Entries) > 0 {
				printComparison(out, rep)
			}
			a.flush(cmd.Context())
			if err != nil {
				return err
			}

			if o.html != "" {
				if err := writeFile(o.html, func(f *os.File) error { return report.Comparison(f, rep) }); err != nil {
					return fmt.Errorf("html: %w", err)
				}
				a.log.Info("comparison chart written", "path", o.html)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&o.locations, "location", "L", nil, "location to compare, CODE or Name=CODE (repeatable)")
	cmd.Flags().DurationVar(&o.pause, "pause", compare.DefaultPause, "wait between runs")
	cmd.Flags().StringVar(&o.html, "html", "", "write a comparison chart to an HTML file")
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// parseLocations turns CODE or Name=CODE values into locations; an empty
// list yields nil so the comparator uses its defaults.
func parseLocations(vals []string) ([]intensity.Location, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	known := make(map[string]string, len(intensity.DefaultLocations))
	for _, l := range intensity.DefaultLocations {
		known[l.Code] = l.Name
	}

	out := make([]intensity.Location, 0, len(vals))
	for _, v := range vals {
		name, code, ok := strings.Cut(v, "=")
		if !ok {
			name, code = "", v
		}
		name, code = strings.TrimSpace(name), strings.TrimSpace(code)
		if code == "" {
			return nil, fmt.Errorf("invalid location %q", v)
		}
		code = intensity.Normalize(code)
		if name == "" {
			name = known[code]
		}
		if name == "" {
			name = code
		}
		out = append(out, intensity.Location{Name: name, Code: code})
	}
	return out, nil
}
