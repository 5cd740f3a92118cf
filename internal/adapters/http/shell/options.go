package shell

import (
	"time"

	"github.com/okian/scout/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger for the shell.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCookieSecure marks the visitor cookie Secure.
func WithCookieSecure(secure bool) Option {
	return func(s *Server) {
		s.cookieSecure = secure
	}
}

// WithMaxUploadBytes caps the size of a video upload form.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithRefreshMargin sets how close to expiry the access token is refreshed.
func WithRefreshMargin(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.refreshMargin = d
		}
	}
}

// WithClock overrides the time source used for ages.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}
