package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window per-key limiter backed by Redis, so the
// window survives restarts and is shared across replicas.
type RateLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	msg    string
}

func NewRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration, msg string) *RateLimiter {
	return &RateLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window, msg: msg}
}

// ByIP limits by client IP.
func (r *RateLimiter) ByIP() fiber.Handler {
	return r.ByKey(func(c *fiber.Ctx) string { return c.IP() })
}

func (r *RateLimiter) ByKey(keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		redisKey := fmt.Sprintf("%s:%s", r.prefix, keyFunc(c))
		count, err := r.rdb.Incr(c.Context(), redisKey).Result()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "rate limiter error")
		}
		if count == 1 {
			r.rdb.Expire(c.Context(), redisKey, r.window)
		}
		if count > int64(r.limit) {
			return fiber.NewError(fiber.StatusTooManyRequests, r.msg)
		}
		return c.Next()
	}
}
