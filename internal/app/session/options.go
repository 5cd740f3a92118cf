package session

import (
	"time"

	"github.com/okian/scout/pkg/logger"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNavigator sets where navigation side effects are sent.
func WithNavigator(n Navigator) Option {
	return func(s *Store) {
		if n != nil {
			s.nav = n
		}
	}
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}
