//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/ja7ad/greenpipeline/pkg/config"
	"github.com/ja7ad/greenpipeline/pkg/consumption"
	"github.com/ja7ad/greenpipeline/pkg/history"
	"github.com/ja7ad/greenpipeline/pkg/intensity"
	"github.com/ja7ad/greenpipeline/pkg/meter"
	"github.com/ja7ad/greenpipeline/pkg/metrics"
	"github.com/ja7ad/greenpipeline/pkg/runner"
	"github.com/ja7ad/greenpipeline/pkg/system/proc"
	"github.com/ja7ad/greenpipeline/pkg/system/util"
	"github.com/redis/go-redis/v9"
)

// app is the per-invocation wiring shared by the subcommands.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	power    consumption.Config
	store    *history.Store
	resolver *intensity.Resolver
	cache    *intensity.Cache
	exporter *metrics.Exporter
	rdb      *redis.Client
}

func newApp(g *globalOpts) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	a := &app{
		cfg:      cfg,
		log:      slog.Default(),
		power:    cfg.PowerModel(util.Machine()),
		store:    history.New(cfg.History.Path, cfg.History.Cap),
		exporter: metrics.NewExporter(),
	}

	opts := []intensity.Option{
		intensity.WithStatic(cfg.StaticTable()),
		intensity.WithLogger(a.log),
	}
	if live := a.liveProvider(); live != nil {
		opts = append(opts, intensity.WithLive(live))
	}
	a.resolver = intensity.NewResolver(opts...)
	return a, nil
}

// liveProvider returns Electricity Maps, behind Redis when configured, or nil
// when no API token is set.
func (a *app) liveProvider() intensity.Provider {
	em := a.cfg.Intensity.ElectricityMaps
	if em.Token == "" {
		return nil
	}
	var live intensity.Provider = intensity.NewElectricityMaps(em.URL, em.Token,
		&http.Client{Timeout: em.Timeout})

	rc := a.cfg.Intensity.Redis
	if rc.Addr == "" {
		return live
	}
	a.rdb = intensity.NewRedisClient(rc.Addr, rc.Password, rc.DB)
	a.cache = intensity.NewCache(a.rdb, live, rc.TTL, a.log)
	return a.cache
}

// meter builds a Meter sampling the host through procfs.
func (a *app) meter() (*meter.Meter, error) {
	src, err := proc.NewSystemSource("")
	if err != nil {
		return nil, fmt.Errorf("procfs: %w", err)
	}
	return meter.New(a.power, runner.Shell{}, a.resolver, src,
		meter.WithRecorder(a.store),
		meter.WithObserver(a.exporter),
		meter.WithSampling(a.cfg.Sampler.Interval, a.cfg.Sampler.JoinTimeout),
		meter.WithLogger(a.log),
	), nil
}

// flush pushes metrics when a Pushgateway is configured; failures are logged.
func (a *app) flush(ctx context.Context) {
	if a.cfg.Metrics.PushGateway == "" {
		return
	}
	err := a.exporter.Push(ctx, a.cfg.Metrics.PushGateway, a.cfg.Metrics.Job,
		map[string]string{"instance": instance()})
	if err != nil {
		a.log.Warn("pushgateway", "err", err)
		return
	}
	a.log.Debug("metrics pushed", "url", a.cfg.Metrics.PushGateway)
}

func (a *app) close() {
	if a.cache != nil {
		if hits, misses, err := a.cache.Stats(context.Background()); err == nil {
			a.log.Debug("intensity cache", "hits", hits, "misses", misses)
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

func instance() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "unknown"
}
