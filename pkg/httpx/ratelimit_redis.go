package httpx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts hits in KEYS[1] and starts the window on the
// first hit. Returns {count, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return { count, ttl }
`)

// redisLimiter is a fixed-window counter shared by every portal replica.
type redisLimiter struct {
	rdb    redis.Scripter
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter allows config.RequestsPerWindow hits per key per window.
// Burst does not apply.
func NewRedisLimiter(rdb redis.Scripter, config RateLimitConfig) Limiter {
	name := config.Name
	if name == "" {
		name = "default"
	}
	return &redisLimiter{
		rdb:    rdb,
		prefix: "rl:" + name + ":",
		limit:  config.RequestsPerWindow,
		window: config.Window,
	}
}

func (rl *redisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := fixedWindowScript.Run(ctx, rl.rdb, []string{rl.prefix + key}, rl.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis limiter: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("redis limiter: unexpected reply %v", res)
	}

	if res[0] <= int64(rl.limit) {
		return true, 0, nil
	}
	return false, time.Duration(res[1]) * time.Millisecond, nil
}

// RateLimiters hands out per-route middleware. With a Redis client the
// buckets are shared across replicas; otherwise each route gets its own
// in-process limiter.
type RateLimiters struct {
	Redis *redis.Client
}

func (rls *RateLimiters) limiter(config RateLimitConfig, scope string) Limiter {
	if rls == nil || rls.Redis == nil {
		return NewMemoryLimiter(config)
	}
	config.Name = config.Name + ":" + scope
	return NewRedisLimiter(rls.Redis, config)
}

// ByIP limits a single route by client IP.
func (rls *RateLimiters) ByIP(config RateLimitConfig, scope string) Middleware {
	return RateLimitWith(config, rls.limiter(config, scope), IPKeyExtractor)
}

// ByIPAndJSONField limits a single route by client IP plus a body field.
func (rls *RateLimiters) ByIPAndJSONField(config RateLimitConfig, scope, field string) Middleware {
	return RateLimitWith(config, rls.limiter(config, scope), CompositeKeyExtractor(":",
		IPKeyExtractor,
		JSONFieldKeyExtractor(field),
	))
}

// ByKey limits a single route with a custom extractor.
func (rls *RateLimiters) ByKey(config RateLimitConfig, scope string, key KeyExtractor) Middleware {
	return RateLimitWith(config, rls.limiter(config, scope), key)
}

// PathValueKeyExtractor keys on a route wildcard such as {email}.
func PathValueKeyExtractor(name string) KeyExtractor {
	return func(r *http.Request) string {
		return r.PathValue(name)
	}
}
