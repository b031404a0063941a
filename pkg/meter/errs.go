package meter

import "errors"

var (
	// ErrNoCommand indicates an empty workload.
	ErrNoCommand = errors.New("meter: empty command")

	// ErrNoExecutor indicates the Meter was built without an Executor.
	ErrNoExecutor = errors.New("meter: no executor")

	// ErrRecord wraps failures to persist a measurement.
	ErrRecord = errors.New("meter: record measurement")
)
