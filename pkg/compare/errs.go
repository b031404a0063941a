package compare

import "errors"

var (
	// ErrNoRunner indicates the Comparator was built without a Runner.
	ErrNoRunner = errors.New("compare: no runner")

	// ErrRun wraps a failed measurement for one location.
	ErrRun = errors.New("compare: run")
)
