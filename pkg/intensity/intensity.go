// Package intensity resolves grid carbon intensity (gCO2e/kWh) for a location.
//
// Resolution order is: live provider (optional, possibly cached in Redis),
// then the built-in Static table, then DefaultIntensity. Resolution never
// fails; the returned Profile records which tier answered.
package intensity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ja7ad/greenpipeline/pkg/consumption"
)

// GlobalZone is the location code for the global average.
const GlobalZone = "GLOBAL"

// Provider looks up the carbon intensity of a zone in gCO2e/kWh.
type Provider interface {
	Intensity(ctx context.Context, zone string) (float64, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, zone string) (float64, error)

func (f ProviderFunc) Intensity(ctx context.Context, zone string) (float64, error) {
	return f(ctx, zone)
}

// Source tells which tier produced a Profile.
type Source string

const (
	SourceLive    Source = "live"
	SourceStatic  Source = "static"
	SourceDefault Source = "default"
)

// Profile is a resolved intensity for a location.
type Profile struct {
	Location  string
	Intensity float64
	Source    Source
}

// Location is a named zone used by comparisons.
type Location struct {
	Name string
	Code string
}

// DefaultLocations is the comparison set, in report order. The first entry is
// the baseline.
var DefaultLocations = []Location{
	{Name: "Colombia", Code: "CO"},
	{Name: "Germany", Code: "DE"},
	{Name: "California", Code: "US-CA"},
	{Name: "France", Code: "FR"},
}

// Static is a fixed zone -> intensity table.
type Static map[string]float64

// DefaultStatic returns the built-in reference table. Every code in
// DefaultLocations is present.
func DefaultStatic() Static {
	return Static{
		GlobalZone: consumption.DefaultIntensity,
		"CO":       165,
		"DE":       420,
		"US-CA":    389,
		"US":       389,
		"FR":       56,
		"GB":       230,
	}
}

// Intensity implements Provider.
func (s Static) Intensity(_ context.Context, zone string) (float64, error) {
	v, ok := s[Normalize(zone)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	return v, nil
}

// Normalize upper-cases and trims a location code; empty becomes GlobalZone.
func Normalize(zone string) string {
	z := strings.ToUpper(strings.TrimSpace(zone))
	if z == "" {
		return GlobalZone
	}
	return z
}

// Resolver applies the live -> static -> default fallback chain.
type Resolver struct {
	live     Provider
	static   Static
	fallback float64
	log      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLive sets the live provider tried first.
func WithLive(p Provider) Option { return func(r *Resolver) { r.live = p } }

// WithStatic replaces the built-in table.
func WithStatic(s Static) Option { return func(r *Resolver) { r.static = s } }

// WithDefault sets the value used when no tier knows the zone.
func WithDefault(v float64) Option {
	return func(r *Resolver) {
		if v > 0 {
			r.fallback = v
		}
	}
}

// WithLogger sets the logger used to report live lookup failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver returns a Resolver using DefaultStatic and DefaultIntensity
// unless overridden.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		static:   DefaultStatic(),
		fallback: consumption.DefaultIntensity,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the intensity for zone. It never fails.
func (r *Resolver) Resolve(ctx context.Context, zone string) Profile {
	z := Normalize(zone)

	if r.live != nil {
		v, err := r.live.Intensity(ctx, z)
		switch {
		case err != nil:
			r.log.Warn("live carbon intensity unavailable, using static table", "zone", z, "err", err)
		case !(v > 0):
			r.log.Warn("live carbon intensity rejected", "zone", z, "value", v, "err", ErrBadIntensity)
		default:
			return Profile{Location: z, Intensity: v, Source: SourceLive}
		}
	}

	if v, err := r.static.Intensity(ctx, z); err == nil && v > 0 {
		return Profile{Location: z, Intensity: v, Source: SourceStatic}
	}
	return Profile{Location: z, Intensity: r.fallback, Source: SourceDefault}
}

// Intensity implements Provider on top of Resolve.
func (r *Resolver) Intensity(ctx context.Context, zone string) (float64, error) {
	return r.Resolve(ctx, zone).Intensity, nil
}
