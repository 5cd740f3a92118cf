// Package repository is the in-memory record store behind the development backend.
package repository

import "time"

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithIDFunc replaces the id generator (uuid v4 by default).
func WithIDFunc(fn func() string) Option {
	return func(s *MemStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *MemStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxLimit caps the page size of List.
func WithMaxLimit(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}
