package source

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenProvider supplies the bearer credential for a source that needs one.
// An empty token with a nil error means "no credential configured".
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a lookup function (typically the settings repository) to
// the TokenProvider interface.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken is a fixed credential, handy for CLIs and tests.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// TokenCache wraps a lookup with a TTL so every resolution does not hit the
// settings store, and supports explicit invalidation after an auth failure.
// Safe for concurrent use.
type TokenCache struct {
	mu        sync.Mutex
	lookup    TokenFunc
	ttl       time.Duration
	now       func() time.Time
	token     string
	fetchedAt time.Time
	valid     bool
}

// NewTokenCache builds a cache over lookup. A non-positive ttl disables
// caching and forwards every call.
func NewTokenCache(lookup TokenFunc, ttl time.Duration) *TokenCache {
	return &TokenCache{lookup: lookup, ttl: ttl, now: time.Now}
}

func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.ttl > 0 && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.token, nil
	}

	token, err := c.lookup(ctx)
	if err != nil {
		return "", fmt.Errorf("lookup token: %w", err)
	}
	c.token = token
	c.fetchedAt = c.now()
	c.valid = true
	return token, nil
}

// Invalidate drops the cached value so the next Token call re-reads the
// store. Called by adapters after the remote rejects the credential.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
