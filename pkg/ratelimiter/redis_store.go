package ratelimiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript mirrors MemoryStore.ConsumeTokens against a hash
// {tokens, last} with millisecond timestamps.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local want = tonumber(ARGV[4])
local now = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  last = now
end

local elapsed = now - last
if elapsed >= interval then
  local intervals = math.min(math.floor(elapsed / interval), math.floor(capacity / rate) + 1)
  tokens = math.min(tokens + intervals * rate, capacity)
  last = now
end

local remaining = tokens - want
if remaining >= 0 then
  tokens = remaining
end

redis.call('HSET', key, 'tokens', tokens, 'last', last)
redis.call('PEXPIRE', key, interval * (math.floor(capacity / rate) + 2))
return {remaining, last + interval}
`)

// RedisStore shares buckets across replicas.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix + "rl:"}
}

func (s *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config, now time.Time) (int, time.Time, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.prefix + key},
		cfg.Capacity, cfg.RefillRate, cfg.RefillInterval.Milliseconds(), tokens, now.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, err
	}
	return int(res[0]), time.UnixMilli(res[1]), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
