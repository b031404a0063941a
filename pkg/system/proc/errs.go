package proc

import "errors"

var (
	// ErrNoCPU indicates that /proc/stat had no (or a malformed) aggregate CPU line.
	ErrNoCPU = errors.New("proc: no cpu line")

	// ErrNoMemInfo indicates that /proc/meminfo had no MemTotal entry.
	ErrNoMemInfo = errors.New("proc: no meminfo")
)
