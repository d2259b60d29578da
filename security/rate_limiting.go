package security

import (
	"fmt"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter applies a fixed-window request limit per client IP, backed
// by Redis so the window survives restarts and is shared across replicas.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
	}
}

// Limit is middleware for the public issuance endpoint. Redis errors fail
// open: a broken limiter must not take ticket issuance down with it.
func (r *RateLimiter) Limit(scope string) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		ip := e.RealIP()
		key := fmt.Sprintf("ratelimit:%s:%s", scope, ip)

		ctx := e.Request.Context()
		count, err := r.redis.Incr(ctx, key).Result()
		if err == nil {
			if count == 1 {
				r.redis.Expire(ctx, key, r.window)
			}
			if count > int64(r.limit) {
				return apis.NewTooManyRequestsError("Too many requests. Please try again later.", nil)
			}
		}

		return e.Next()
	}
}
