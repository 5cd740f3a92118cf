package mockapi

import (
	"time"

	"github.com/okian/scout/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithAccessTTL sets how long access tokens live.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.tokens.accessTTL = d
		}
	}
}

// WithRefreshTTL sets how long refresh tokens live.
func WithRefreshTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.tokens.refreshTTL = d
		}
	}
}

// WithMaxVideoBytes caps uploaded video size.
func WithMaxVideoBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxVideoBytes = n
		}
	}
}

// WithClock replaces the time source used for token timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.tokens.now = now
		}
	}
}
