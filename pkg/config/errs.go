package config

import "errors"

var (
	ErrRead    = errors.New("config: read")
	ErrParse   = errors.New("config: parse")
	ErrInvalid = errors.New("config: invalid")
)
