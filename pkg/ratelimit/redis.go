package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript atomically refills and consumes one token from a
// bucket stored as a Redis hash {tokens, refilled_at}. Returns 1 if a
// token was available and consumed, 0 otherwise.
const tokenBucketScript = `
local key = KEYS[1]
local max_tokens = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tokens = tonumber(redis.call("HGET", key, "tokens"))
local refilled_at = tonumber(redis.call("HGET", key, "refilled_at"))

if tokens == nil then
  tokens = max_tokens
  refilled_at = now
end

local elapsed = math.max(0, now - refilled_at)
tokens = math.min(max_tokens, tokens + elapsed * refill_rate)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "refilled_at", now)
redis.call("EXPIRE", key, ttl)

return allowed
`

// RedisLimiter is a Redis-backed token-bucket limiter for multi-process
// deployments, grounded on go-redis's Lua scripting support for atomic
// check-and-consume.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	script *redis.Script
	now    func() int64
}

// NewRedisLimiter constructs a limiter against an existing Redis client.
func NewRedisLimiter(client *redis.Client, cfg Config, nowUnix func() int64) *RedisLimiter {
	if cfg.MaxPerHour <= 0 {
		cfg.MaxPerHour = 60
	}
	return &RedisLimiter{
		client: client,
		cfg:    cfg,
		script: redis.NewScript(tokenBucketScript),
		now:    nowUnix,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	refillRate := float64(l.cfg.MaxPerHour) / 3600.0
	result, err := l.script.Run(ctx, l.client, []string{"ratelimit:" + key},
		l.cfg.MaxPerHour, refillRate, l.now(), 3600*2,
	).Int()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis script: %w", err)
	}
	return result == 1, nil
}
