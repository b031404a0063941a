// Package config loads greenpipeline settings from an optional YAML file and
// the environment. Command-line flags are layered on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ja7ad/greenpipeline/pkg/consumption"
	"github.com/ja7ad/greenpipeline/pkg/history"
	"github.com/ja7ad/greenpipeline/pkg/intensity"
	"github.com/ja7ad/greenpipeline/pkg/sampler"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user state directory under $HOME.
const DirName = ".greenpipeline"

// Environment overrides.
const (
	EnvToken       = "GREENPIPELINE_ELECTRICITYMAPS_TOKEN"
	EnvRedisAddr   = "GREENPIPELINE_REDIS_ADDR"
	EnvPushGateway = "GREENPIPELINE_PUSHGATEWAY"
	EnvHistory     = "GREENPIPELINE_HISTORY"
)

type Config struct {
	History   History   `yaml:"history"`
	Sampler   Sampler   `yaml:"sampler"`
	Power     Power     `yaml:"power"`
	Intensity Intensity `yaml:"intensity"`
	Metrics   Metrics   `yaml:"metrics"`
}

type History struct {
	Path string `yaml:"path"`
	Cap  int    `yaml:"cap"`
}

type Sampler struct {
	Interval    time.Duration `yaml:"interval"`
	JoinTimeout time.Duration `yaml:"join_timeout"`
}

// Power holds model overrides; zero fields keep the architecture profile.
type Power struct {
	TDP            float64 `yaml:"tdp_watts"`
	CPUPowerFactor float64 `yaml:"cpu_power_factor"`
	CPUBaseline    float64 `yaml:"cpu_baseline"`
	RAMWattsPerGB  float64 `yaml:"ram_watts_per_gb"`
}

type Intensity struct {
	Location        string             `yaml:"location"`
	Static          map[string]float64 `yaml:"static"`
	ElectricityMaps ElectricityMaps    `yaml:"electricitymaps"`
	Redis           Redis              `yaml:"redis"`
}

type ElectricityMaps struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type Metrics struct {
	PushGateway string `yaml:"pushgateway"`
	Job         string `yaml:"job"`
}

// Dir returns ~/.greenpipeline, or a relative .greenpipeline when the home
// directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath is the config file location.
func DefaultPath() string { return filepath.Join(Dir(), "config.yaml") }

// Default returns the built-in settings.
func Default() Config {
	return Config{
		History: History{
			Path: filepath.Join(Dir(), "history.json"),
			Cap:  history.DefaultCap,
		},
		Sampler: Sampler{
			Interval:    sampler.DefaultInterval,
			JoinTimeout: sampler.DefaultJoinTimeout,
		},
		Intensity: Intensity{
			Location: intensity.GlobalZone,
			ElectricityMaps: ElectricityMaps{
				URL:     intensity.DefaultElectricityMapsURL,
				Timeout: 5 * time.Second,
			},
			Redis: Redis{TTL: intensity.DefaultCacheTTL},
		},
		Metrics: Metrics{Job: "greenpipeline"},
	}
}

// Load reads path over Default. A missing file is not an error; an empty
// path means DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("%w: %w", ErrRead, err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Default(), fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overlays environment overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvToken); v != "" {
		c.Intensity.ElectricityMaps.Token = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Intensity.Redis.Addr = v
	}
	if v := os.Getenv(EnvPushGateway); v != "" {
		c.Metrics.PushGateway = v
	}
	if v := os.Getenv(EnvHistory); v != "" {
		c.History.Path = v
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.History.Cap < 0 {
		return fmt.Errorf("%w: history.cap %d", ErrInvalid, c.History.Cap)
	}
	if c.Sampler.Interval < 0 || c.Sampler.JoinTimeout < 0 {
		return fmt.Errorf("%w: sampler durations must not be negative", ErrInvalid)
	}
	if c.Power.CPUBaseline > 1 {
		return fmt.Errorf("%w: power.cpu_baseline %s above 1", ErrInvalid,
			strconv.FormatFloat(c.Power.CPUBaseline, 'g', -1, 64))
	}
	for zone, v := range c.Intensity.Static {
		if !(v > 0) {
			return fmt.Errorf("%w: intensity.static[%s] must be positive", ErrInvalid, zone)
		}
	}
	return nil
}

// PowerModel merges the overrides onto the profile for arch.
func (c Config) PowerModel(arch string) consumption.Config {
	return consumption.Merge(consumption.ProfileFor(arch), &consumption.Config{
		TDP:            c.Power.TDP,
		CPUPowerFactor: c.Power.CPUPowerFactor,
		CPUBaseline:    c.Power.CPUBaseline,
		RAMWattsPerGB:  c.Power.RAMWattsPerGB,
	})
}

// StaticTable returns the built-in intensities with file entries overlaid.
func (c Config) StaticTable() intensity.Static {
	t := intensity.DefaultStatic()
	for zone, v := range c.Intensity.Static {
		t[intensity.Normalize(zone)] = v
	}
	return t
}
