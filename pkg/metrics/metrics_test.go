package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ja7ad/greenpipeline/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(loc string, ok bool, carbon float64) types.Measurement {
	return types.Measurement{
		Command:         "make test",
		Location:        loc,
		Success:         ok,
		DurationSec:     10,
		PowerWatts:      46.25,
		CPUPercentAvg:   50,
		EnergyJoules:    462.5,
		CarbonGrams:     carbon,
		CarbonIntensity: 475,
	}
}

func TestExporter_Observe(t *testing.T) {
	e := NewExporter()
	e.Observe(sample("DE", true, 0.05))
	e.Observe(sample("DE", false, 0.03))
	e.Observe(sample("FR", true, 0.01))

	assert.Equal(t, 1.0, testutil.ToFloat64(e.RunsTotal.WithLabelValues("DE", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.RunsTotal.WithLabelValues("DE", "false")))
	assert.InDelta(t, 0.08, testutil.ToFloat64(e.CarbonGramsTotal.WithLabelValues("DE")), 1e-12)
	assert.InDelta(t, 925.0, testutil.ToFloat64(e.EnergyJoulesTotal.WithLabelValues("DE")), 1e-9)
	assert.Equal(t, 0.03, testutil.ToFloat64(e.LastCarbonGrams.WithLabelValues("DE", "make test")))
	assert.Equal(t, 475.0, testutil.ToFloat64(e.CarbonIntensity.WithLabelValues("FR")))
	assert.Equal(t, 2, testutil.CollectAndCount(e.CarbonGramsTotal))
}

func TestExporter_NegativeIsIgnoredByCounters(t *testing.T) {
	e := NewExporter()
	assert.NotPanics(t, func() { e.Observe(sample("DE", true, -1)) })
	assert.Equal(t, 0.0, testutil.ToFloat64(e.CarbonGramsTotal.WithLabelValues("DE")))
}

func TestExporter_Handler(t *testing.T) {
	e := NewExporter()
	e.Observe(sample("CO", true, 0.02))

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `greenpipeline_carbon_grams_total{location="CO"} 0.02`)
}

func TestExporter_Push(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, body = r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	e := NewExporter()
	e.Observe(sample("DE", true, 0.05))
	require.NoError(t, e.Push(context.Background(), gw.URL, "", map[string]string{"pipeline": "ci"}))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasPrefix(path, "/metrics/job/greenpipeline"), path)
	assert.Contains(t, path, "pipeline/ci")
	assert.NotEmpty(t, body)
}

func TestExporter_PushErrors(t *testing.T) {
	e := NewExporter()
	require.ErrorIs(t, e.Push(context.Background(), "", "job", nil), ErrNoGateway)

	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gw.Close()
	require.ErrorIs(t, e.Push(context.Background(), gw.URL, "job", nil), ErrPush)
}
