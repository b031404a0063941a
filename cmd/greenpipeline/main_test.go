//go:build linux

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ja7ad/greenpipeline/pkg/compare"
	"github.com/ja7ad/greenpipeline/pkg/config"
	"github.com/ja7ad/greenpipeline/pkg/history"
	"github.com/ja7ad/greenpipeline/pkg/intensity"
	"github.com/ja7ad/greenpipeline/pkg/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command in an isolated home directory.
func execute(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvRedisAddr, "")
	t.Setenv(config.EnvPushGateway, "")
	t.Setenv(config.EnvHistory, "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, home string) {
	t.Helper()
	dir := filepath.Join(home, config.DirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("sampler:\n  interval: 10ms\n"), 0o644))
}

func TestTailLines(t *testing.T) {
	out := "1\n2\n3\n4\n5\n6\n7\n"
	assert.Equal(t, []string{"3", "4", "5", "6", "7"}, tailLines(out, 5, 70))
	assert.Nil(t, tailLines("  \n", 5, 70))
	assert.Equal(t, []string{"abc"}, tailLines("abcdef", 5, 3))
	assert.Equal(t, []string{"ñandú"}, tailLines("ñandú-xyz", 5, 5))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 30))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestParseLocations(t *testing.T) {
	locs, err := parseLocations(nil)
	require.NoError(t, err)
	assert.Nil(t, locs)

	locs, err = parseLocations([]string{"co", "Poland=PL", " fr "})
	require.NoError(t, err)
	assert.Equal(t, []intensity.Location{
		{Name: "Colombia", Code: "CO"},
		{Name: "Poland", Code: "PL"},
		{Name: "France", Code: "FR"},
	}, locs)

	_, err = parseLocations([]string{"Nowhere="})
	require.Error(t, err)
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil, history.Aggregate{})
	assert.Contains(t, buf.String(), "No history yet")

	ms := []types.Measurement{
		{Timestamp: time.Now(), Command: "make test", Location: "DE", Success: true, DurationSec: 12, CarbonGrams: 0.5, EnergyJoules: 1000},
		{Timestamp: time.Now(), Command: "make lint", Location: "DE", DurationSec: 3, CarbonGrams: 0.25, EnergyJoules: 500},
	}
	buf.Reset()
	printHistory(&buf, ms, history.Summarize(ms))
	got := buf.String()
	assert.Contains(t, got, "make test")
	assert.Contains(t, got, "failed")
	assert.Contains(t, got, "Total runs:        2 (1 failed)")
	assert.Contains(t, got, "Total emissions:   0.75 g CO2e")
	assert.Contains(t, got, "Total energy:      1500 J")
}

func TestPrintComparison(t *testing.T) {
	rep := compare.Report{
		Command: "make",
		Entries: []compare.Entry{
			{Location: intensity.Location{Name: "Colombia", Code: "CO"}, Measurement: types.Measurement{CarbonGrams: 1, CarbonIntensity: 165}},
			{Location: intensity.Location{Name: "Germany", Code: "DE"}, Measurement: types.Measurement{CarbonGrams: 2, CarbonIntensity: 420}, DeltaPercent: 154.5},
		},
	}
	var buf bytes.Buffer
	printComparison(&buf, rep)
	assert.Contains(t, buf.String(), "+0.0%")
	assert.Contains(t, buf.String(), "+154.5%")
	assert.Contains(t, buf.String(), "Lowest emissions: Colombia (CO)")
}

func TestCLI_Estimate(t *testing.T) {
	home := t.TempDir()
	out, err := execute(t, home, "estimate", "--duration", "10s", "--cpu", "50", "--memory-mb", "2048", "--location", "GLOBAL", "--record")
	require.NoError(t, err)
	assert.Contains(t, out, "CO2e:")
	assert.Contains(t, out, "Saved to:")

	hist := history.New(filepath.Join(home, config.DirName, "history.json"), 0)
	all, err := hist.List(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "estimate", all[0].Command)
	assert.Equal(t, 475.0, all[0].CarbonIntensity)
}

func TestCLI_EstimateValidates(t *testing.T) {
	_, err := execute(t, t.TempDir(), "estimate", "--duration", "10s", "--cpu", "150")
	require.Error(t, err)
}

func TestCLI_RunAndHistory(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home)

	out, err := execute(t, home, "run", "--location", "FR", "echo hello; sleep 0.05")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:    success")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "(FR)")

	// a failing workload is measured and recorded, the CLI still succeeds
	out, err = execute(t, home, "run", "echo oops >&2; exit 4")
	require.NoError(t, err)
	assert.Contains(t, out, "failed (exit 4)")
	assert.Contains(t, out, "oops")

	_, err = execute(t, home, "run", "--no-history", "true")
	require.NoError(t, err)

	exportPath := filepath.Join(home, "out", "history.csv")
	htmlPath := filepath.Join(home, "out", "history.html")
	out, err = execute(t, home, "history", "--export", exportPath, "--html", htmlPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Total runs:        2 (1 failed)")

	csv, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(strings.TrimSpace(string(csv)), "\n")+1)

	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Carbon per run")
}

func TestCLI_HistoryBadFormat(t *testing.T) {
	home := t.TempDir()
	_, err := execute(t, home, "history", "--export", filepath.Join(home, "x.xml"))
	require.ErrorIs(t, err, history.ErrFormat)
}

func TestCLI_Info(t *testing.T) {
	out, err := execute(t, t.TempDir(), "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Power profile:")
	assert.Contains(t, out, "Live intensity:")
	assert.Contains(t, out, "US-CA")
}

func TestCLI_WorkloadFlagsAreNotParsed(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home)

	out, err := execute(t, home, "run", "--no-history", "--location", "DE", "printf", "%s-%s", "-la", "--location")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:    success")
	assert.Contains(t, out, "-la---location")
	assert.Contains(t, out, "(DE)")

	for _, cmd := range []*cobra.Command{newRunCmd(&globalOpts{}), newCompareCmd(&globalOpts{})} {
		require.NoError(t, cmd.ParseFlags([]string{"make", "-j4", "--pause", "x"}), cmd.Name())
		assert.Equal(t, []string{"make", "-j4", "--pause", "x"}, cmd.Flags().Args(), cmd.Name())
	}
}

func TestCLI_HistoryLimitAndTotals(t *testing.T) {
	home := t.TempDir()
	store := history.New(filepath.Join(home, config.DirName, "history.json"), 0)
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Append(types.Measurement{
			Timestamp:    time.Now(),
			Command:      fmt.Sprintf("job-%d", i),
			Location:     "FR",
			Success:      i != 2,
			CarbonGrams:  0.5,
			EnergyJoules: 100,
		}))
	}

	out, err := execute(t, home, "history", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "HISTORY (last 1 runs)")
	assert.Contains(t, out, "job-3")
	assert.NotContains(t, out, "job-1")
	assert.Contains(t, out, "Total runs:        3 (1 failed)")
	assert.Contains(t, out, "Total emissions:   1.50 g CO2e")
}

func TestCLI_EstimateRejectsNonFinite(t *testing.T) {
	cases := map[string][]string{
		"cpu_nan":   {"--cpu=NaN"},
		"cpu_inf":   {"--cpu=+Inf"},
		"mem_inf":   {"--cpu=10", "--memory-mb=+Inf"},
		"mem_nan":   {"--cpu=10", "--memory-mb=NaN"},
		"mem_below": {"--cpu=10", "--memory-mb=-1"},
	}
	for name, flags := range cases {
		t.Run(name, func(t *testing.T) {
			home := t.TempDir()
			args := append([]string{"estimate", "--duration", "10s", "--record"}, flags...)
			_, err := execute(t, home, args...)
			require.Error(t, err)
			_, statErr := os.Stat(filepath.Join(home, config.DirName, "history.json"))
			assert.True(t, os.IsNotExist(statErr), "nothing recorded")
		})
	}
}
