package storage

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidNamespace = errors.New("invalid storage namespace")
	ErrCorrupt          = errors.New("corrupt stored value")
)
