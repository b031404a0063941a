package report

import "errors"

var (
	// ErrEmpty indicates there is nothing to chart.
	ErrEmpty = errors.New("report: no data")

	// ErrRender wraps chart rendering failures.
	ErrRender = errors.New("report: render")
)
