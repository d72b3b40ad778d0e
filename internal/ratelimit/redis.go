package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scentlab/storefront/internal/redisx"
)

// RedisLimiter is the shared fixed-window limiter: INCR per window with the
// window set as key TTL on first hit.
type RedisLimiter struct {
	RDB    *redis.Client
	Scope  string
	Limit  int
	Window time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

func (l *RedisLimiter) Allow(ctx context.Context, id string) (Result, error) {
	key := fmt.Sprintf(redisx.KeyRateLimit, l.Scope, id)

	n, err := l.RDB.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}
	if n == 1 {
		_ = l.RDB.Expire(ctx, key, l.Window).Err()
	}

	ttl, err := l.RDB.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = l.Window
	}
	reset := time.Now().Add(ttl)

	if int(n) > l.Limit {
		return Result{Allowed: false, Limit: l.Limit, Remaining: 0, Reset: reset}, nil
	}
	return Result{Allowed: true, Limit: l.Limit, Remaining: l.Limit - int(n), Reset: reset}, nil
}
