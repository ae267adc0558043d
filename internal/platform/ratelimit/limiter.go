// Package ratelimit implements sliding-log attempt limiting for auth endpoints.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable signals the limiter backend could not be consulted.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Limiter decides whether another attempt identified by key may proceed.
// Every allowed call consumes one slot in the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config bounds attempts per key within a rolling window.
type Config struct {
	Limit  int
	Window time.Duration
	// Prefix namespaces keys in shared backends.
	Prefix string
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = 10
	}
	if c.Window <= 0 {
		c.Window = 15 * time.Minute
	}
	if c.Prefix == "" {
		c.Prefix = "ratelimit:auth:"
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
