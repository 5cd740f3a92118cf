package account

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalid = errors.New("invalid account input")
)
