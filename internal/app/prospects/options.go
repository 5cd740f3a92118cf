package prospects

import (
	"github.com/okian/scout/internal/domain/prospect"
	"github.com/okian/scout/pkg/logger"
)

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPageLimit sets the initial page size.
func WithPageLimit(limit int) Option {
	return func(c *Controller) {
		if limit > 0 {
			c.filters = prospect.DefaultFilters(limit)
		}
	}
}
