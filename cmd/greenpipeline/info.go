//go:build linux

package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/ja7ad/greenpipeline/pkg/consumption"
	"github.com/ja7ad/greenpipeline/pkg/system/cgroup"
	"github.com/ja7ad/greenpipeline/pkg/system/util"
	"github.com/spf13/cobra"
)

func newInfoCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show host, power model and carbon intensity settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(g)
			if err != nil {
				return err
			}
			defer a.close()

			h, err := util.DescribeHost()
			if err != nil {
				a.log.Warn("host details incomplete", "err", err)
			}
			mode, err := cgroup.Detect()
			if err != nil {
				a.log.Warn("cgroup detection", "err", err)
			}
			printInfo(cmd.OutOrStdout(), a, h, mode)
			return nil
		},
	}
}

func printInfo(w io.Writer, a *app, h util.Host, mode cgroup.Mode) {
	profile := "default"
	if consumption.KnownArch(h.Machine) {
		profile = h.Machine
	}
	live := "off (static table)"
	switch {
	case a.cache != nil:
		live = "electricitymaps via redis " + a.cfg.Intensity.Redis.Addr
	case a.cfg.Intensity.ElectricityMaps.Token != "":
		live = "electricitymaps " + a.cfg.Intensity.ElectricityMaps.URL
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Host:\t%s\n", h.Hostname)
	fmt.Fprintf(tw, "Kernel:\t%s\n", h.Kernel)
	fmt.Fprintf(tw, "CPUs:\t%d (%s)\n", h.CPUs, h.Machine)
	fmt.Fprintf(tw, "Memory:\t%s\n", h.Memory)
	fmt.Fprintf(tw, "Cgroups:\t%s\n", mode.Detail())
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Power profile:\t%s\n", profile)
	fmt.Fprintf(tw, "  TDP:\t%g W\n", a.power.TDP)
	fmt.Fprintf(tw, "  CPU:\tTDP * (U * %g + %g)\n", a.power.CPUPowerFactor, a.power.CPUBaseline)
	fmt.Fprintf(tw, "  RAM:\t%g W/GB\n", a.power.RAMWattsPerGB)
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "History:\t%s (cap %d)\n", a.store.Path(), a.store.Cap())
	fmt.Fprintf(tw, "Default location:\t%s\n", a.cfg.Intensity.Location)
	fmt.Fprintf(tw, "Live intensity:\t%s\n", live)
	tw.Flush()

	table := a.cfg.StaticTable()
	zones := make([]string, 0, len(table))
	for z := range table {
		zones = append(zones, z)
	}
	sort.Strings(zones)

	fmt.Fprintln(w, "\nStatic intensities (gCO2e/kWh):")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, z := range zones {
		fmt.Fprintf(tw, "  %s\t%g\n", z, table[z])
	}
	tw.Flush()
}
