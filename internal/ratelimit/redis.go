package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter on Redis INCR/EXPIRE. When Redis is
// unreachable it fails open: throttling is a safeguard, not a dependency, and
// an outage must not take OTP issuance down with it.
type RedisLimiter struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client, logger *slog.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, logger: logger}
}

// Allow increments the window counter and compares it against the limit. The
// expiry is set in the same pipeline as the increment so a counter can never
// leak without a TTL.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		l.logger.WarnContext(ctx, "rate limiter unavailable, failing open",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return true, nil
	}

	if incr.Val() > int64(limit) {
		return false, nil
	}
	return true, nil
}

// Reset deletes the window counter for a key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset rate limit key %s: %w", key, err)
	}
	return nil
}
