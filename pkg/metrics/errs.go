package metrics

import "errors"

var (
	// ErrNoGateway indicates Push was called without a Pushgateway URL.
	ErrNoGateway = errors.New("metrics: no pushgateway url")

	// ErrPush wraps Pushgateway failures.
	ErrPush = errors.New("metrics: push")
)
