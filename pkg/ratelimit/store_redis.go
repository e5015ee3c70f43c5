package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript runs one fixed-window step atomically on the server.
// KEYS[1] counter hash; ARGV now_ms, window_ms, limit.
var consumeScript = redis.NewScript(`
local state = redis.call('HMGET', KEYS[1], 'count', 'reset')
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local count = tonumber(state[1]) or 0
local reset = tonumber(state[2]) or 0
if now >= reset then
  count = 0
  reset = now + window
end
local allowed = 0
if count < limit then
  count = count + 1
  allowed = 1
end
redis.call('HSET', KEYS[1], 'count', count, 'reset', reset)
redis.call('PEXPIRE', KEYS[1], reset - now)
return {allowed, reset}
`)

// RedisStore keeps counters in redis so several server replicas share one
// quota per category.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore using keys under prefix.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "xmcp:ratelimit:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Consume(ctx context.Context, key string, lim Limit, now time.Time) (bool, time.Time, error) {
	res, err := consumeScript.Run(ctx, s.rdb, []string{s.prefix + key},
		now.UnixMilli(), lim.Window.Milliseconds(), lim.Limit).Int64Slice()
	if err != nil {
		return false, time.Time{}, fmt.Errorf("ratelimit: redis consume %s: %w", key, err)
	}
	if len(res) != 2 {
		return false, time.Time{}, fmt.Errorf("ratelimit: redis consume %s: unexpected reply %v", key, res)
	}
	return res[0] == 1, time.UnixMilli(res[1]), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) (time.Time, error) {
	ms, err := s.rdb.HGet(ctx, s.prefix+key, "reset").Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("ratelimit: redis reset %s: %w", key, err)
	}
	return time.UnixMilli(ms), nil
}
