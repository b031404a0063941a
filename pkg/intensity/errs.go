package intensity

import "errors"

var (
	// ErrUnknownZone is returned by providers that have no value for a zone.
	ErrUnknownZone = errors.New("intensity: unknown zone")

	// ErrBadIntensity indicates a provider returned a non-positive value.
	ErrBadIntensity = errors.New("intensity: non-positive value")

	// ErrUpstream wraps non-success responses from a live API.
	ErrUpstream = errors.New("intensity: upstream error")
)
