package backend

import (
	"sync"

	"github.com/okian/scout/internal/domain/account"
)

// Credentials holds the bearer token attached to outgoing requests.
// The session store writes it; the client only reads it.
type Credentials struct {
	mu     sync.RWMutex
	tokens account.Tokens
}

// Set replaces both tokens.
func (c *Credentials) Set(t account.Tokens) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

// Get returns both tokens.
func (c *Credentials) Get() account.Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// Token returns the bearer token, empty when logged out.
func (c *Credentials) Token() string {
	return c.Get().Token
}

// Clear forgets both tokens.
func (c *Credentials) Clear() {
	c.Set(account.Tokens{})
}
