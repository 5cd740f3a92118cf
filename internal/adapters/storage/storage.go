// Package storage keeps small per-visitor key/value state across page loads.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
)

// Well-known keys.
const (
	KeyToken        = "auth.token"
	KeyRefreshToken = "auth.refreshToken"
	KeyUser         = "auth.user"
	KeyTheme        = "theme"
)

// Store is one visitor's key/value namespace.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Provider opens the namespace of one visitor. Release tells the provider the
// namespace is no longer held in memory by its visitor.
type Provider interface {
	Open(ctx context.Context, namespace string) (Store, error)
	Release(namespace string)
}

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`) //nolint:gochecknoglobals // compiled once

func checkNamespace(ns string) error {
	if !namespacePattern.MatchString(ns) {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, ns)
	}
	return nil
}

// GetJSON decodes the value under key into out. It reports false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	return true, nil
}

// SetJSON stores v encoded as JSON under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(b))
}
