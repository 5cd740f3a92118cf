package prospects

import "errors"

// Sentinel error kinds for this package.
var (
	ErrClosed = errors.New("prospect controller closed")
)
