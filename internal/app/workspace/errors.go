package workspace

import "errors"

var (
	// ErrInvalidID is returned for an empty visitor id.
	ErrInvalidID = errors.New("workspace: invalid visitor id")
	// ErrClosed is returned by a registry after Close.
	ErrClosed = errors.New("workspace: registry closed")
)
