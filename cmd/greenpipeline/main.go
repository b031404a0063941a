//go:build linux

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type globalOpts struct {
	configPath string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error(err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var g globalOpts

	root := &cobra.Command{
		Use:   "greenpipeline",
		Short: "Carbon footprint estimation for CI workloads",
		Long: `greenpipeline runs a shell command, samples host CPU and memory while it
runs, and turns the result into energy (J, kWh) and emissions (gCO2e) using
the carbon intensity of the selected grid location.

Measurements are kept in ~/.greenpipeline/history.json (last 100 runs).

Examples:
  greenpipeline run --location CO npm test
  greenpipeline run --location US-CA python -m pytest -x
  greenpipeline history --limit 20 --html history.html
  greenpipeline compare npm run build
  greenpipeline estimate --duration 90s --cpu 65 --memory-mb 1800 --location DE`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if g.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ~/.greenpipeline/config.yaml)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRunCmd(&g),
		newHistoryCmd(&g),
		newCompareCmd(&g),
		newEstimateCmd(&g),
		newInfoCmd(&g),
	)
	return root
}
