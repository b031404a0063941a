package history

import "errors"

var (
	// ErrCorrupt indicates the history file exists but cannot be decoded.
	// The file is left untouched.
	ErrCorrupt = errors.New("history: corrupt log")

	// ErrFormat indicates an unsupported export format.
	ErrFormat = errors.New("history: unsupported format")
)
