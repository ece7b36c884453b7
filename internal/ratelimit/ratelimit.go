package ratelimit

import (
	"context"
	"time"
)

// Limiter bounds how often an action may happen for a given key.
type Limiter interface {
	// Allow reports whether the action identified by key may proceed, given
	// at most limit occurrences per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}

// Noop allows everything. Used when no Redis is configured.
type Noop struct{}

func (Noop) Allow(context.Context, string, int, time.Duration) (bool, error) { return true, nil }
func (Noop) Reset(context.Context, string) error                            { return nil }
