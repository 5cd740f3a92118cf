package prospect

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalid       = errors.New("invalid prospect input")
	ErrInvalidFilter = errors.New("invalid prospect filter")
)
