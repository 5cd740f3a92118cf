package shell

import "errors"

var (
	// ErrTemplates is returned when the embedded templates fail to parse.
	ErrTemplates = errors.New("shell: parse templates")
	// ErrBadForm is returned for a form that cannot be read.
	ErrBadForm = errors.New("shell: bad form")
)
