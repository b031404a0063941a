package sampler

import "errors"

var (
	// ErrState indicates a lifecycle call in the wrong state (e.g. Start twice).
	ErrState = errors.New("sampler: invalid state")

	// ErrNoSource indicates the Sampler was built without a Source.
	ErrNoSource = errors.New("sampler: no source")

	// ErrCollect wraps faults raised while reading the Source.
	ErrCollect = errors.New("sampler: collect")
)
