package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "nameguard:ratelimit:"

// slidingWindowScript trims the sorted set to the window, then adds the
// request if there is room. Scores are unix milliseconds.
// Returns {allowed, count, oldest}.
var slidingWindowScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  count = count + 1
  allowed = 1
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local first = now
if oldest[2] then
  first = tonumber(oldest[2])
end
return {allowed, count, first}
`)

// RedisStore shares the window between replicas.
type RedisStore struct {
	client redis.Scripter
	now    func() time.Time
}

// NewRedisStore creates a store on client.
func NewRedisStore(client redis.Scripter) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Allow runs the window check atomically on the server.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := s.now()
	res, err := slidingWindowScript.Run(ctx, s.client,
		[]string{keyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit check: unexpected reply length %d", len(res))
	}
	return newResult(res[0] == 1, limit, int(res[1]), time.UnixMilli(res[2]), window, now), nil
}
