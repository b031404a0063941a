//go:build linux

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ja7ad/greenpipeline/pkg/history"
	"github.com/ja7ad/greenpipeline/pkg/report"
	"github.com/spf13/cobra"
)

type historyOpts struct {
	limit  int
	html   string
	export string
	format string
}

func newHistoryCmd(g *globalOpts) *cobra.Command {
	var o historyOpts

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded measurements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(g)
			if err != nil {
				return err
			}
			defer a.close()

			recent, err := a.store.List(o.limit)
			if err != nil {
				return err
			}
			total, err := a.store.Aggregate()
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), recent, total)

			if o.html != "" {
				if err := writeFile(o.html, func(f *os.File) error { return report.History(f, recent) }); err != nil {
					return fmt.Errorf("html: %w", err)
				}
				a.log.Info("history chart written", "path", o.html)
			}

			if o.export != "" {
				spec := o.format
				if spec == "" {
					spec = filepath.Ext(o.export)
				}
				f, err := history.ParseFormat(spec)
				if err != nil {
					return err
				}
				all, err := a.store.List(0)
				if err != nil {
					return err
				}
				if err := writeFile(o.export, func(w *os.File) error { return history.Export(w, f, all) }); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				a.log.Info("history exported", "path", o.export, "format", f, "records", len(all))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&o.limit, "limit", "n", 10, "number of recent runs to list (0 = all)")
	cmd.Flags().StringVar(&o.html, "html", "", "write charts of the listed runs to an HTML file")
	cmd.Flags().StringVar(&o.export, "export", "", "export the whole history to a file")
	cmd.Flags().StringVar(&o.format, "format", "", "export format: csv, json or parquet (default from file extension)")
	return cmd
}

// writeFile creates path (and its directory) and hands it to fn.
func writeFile(path string, fn func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
