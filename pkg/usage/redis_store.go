package usage

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/meterkit/pkg/redis"
)

// DefaultRedisRetention keeps a counter alive for a day after its last write,
// which covers the read-after-midnight case.
const DefaultRedisRetention = 48 * time.Hour

// consumeScript reproduces Record.apply on a hash {count, last} where last is
// a unix millisecond timestamp.
var consumeScript = goredis.NewScript(`
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
local last = tonumber(redis.call('HGET', KEYS[1], 'last') or '0')
local quota = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local effective = count
if last == 0 or math.floor(now / 86400000) > math.floor(last / 86400000) then
  effective = 0
end

if quota >= 0 and effective >= quota then
  return {0, effective, last}
end

if now > last then
  last = now
end
redis.call('HSET', KEYS[1], 'count', effective + 1, 'last', last)
redis.call('PEXPIRE', KEYS[1], ttl)
return {1, effective + 1, last}
`)

// RedisStore keeps one hash per identity key.
type RedisStore struct {
	client    goredis.Cmdable
	prefix    string
	retention time.Duration
}

type RedisOption func(*RedisStore)

func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

func WithRetention(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

func NewRedisStore(client goredis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "meterkit:", retention: DefaultRedisRetention}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(k string) string { return s.prefix + "usage:" + k }

func (s *RedisStore) Get(ctx context.Context, key string) (Record, error) {
	vals, err := s.client.HMGet(ctx, s.key(key), "count", "last").Result()
	if err != nil {
		return Record{}, errors.Join(ErrStoreFailure, redis.Classify(err))
	}
	r := Record{Key: key}
	if c, ok := vals[0].(string); ok {
		r.Count, _ = strconv.Atoi(c)
	}
	if l, ok := vals[1].(string); ok {
		if ms, err := strconv.ParseInt(l, 10, 64); err == nil && ms > 0 {
			r.LastActivityAt = time.UnixMilli(ms).UTC()
		}
	}
	return r, nil
}

func (s *RedisStore) Consume(ctx context.Context, key string, quota int, now time.Time) (Record, bool, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.key(key)},
		quota, now.UnixMilli(), s.retention.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Record{}, false, errors.Join(ErrStoreFailure, redis.Classify(err))
	}

	r := Record{Key: key, Count: int(res[1])}
	if res[2] > 0 {
		r.LastActivityAt = time.UnixMilli(res[2]).UTC()
	}
	return r, res[0] == 1, nil
}
