package workspace

import "github.com/okian/scout/pkg/logger"

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithMaxSize sets how many workspaces are kept.
// If maxSize > 0: bounded, the least recently used workspace is closed and dropped.
// If maxSize <= 0: unbounded.
func WithMaxSize(maxSize int) Option {
	return func(r *Registry) {
		r.maxSize = maxSize
	}
}

// WithLogger sets a custom logger for the registry.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}
