package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gonogo/internal/ratelimit/models"
)

// allowScript trims the window, admits cost members when they fit, and
// reports the count and the oldest score. Scores are microseconds from the
// Redis server clock so replicas never disagree about the window.
//
// KEYS[1] bucket key
// ARGV[1] window (µs)  ARGV[2] limit  ARGV[3] cost  ARGV[4] member prefix
var allowScript = redis.NewScript(`
local key = KEYS[1]
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local member = ARGV[4]

local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000000 + tonumber(t[2])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count + cost <= limit then
  for i = 1, cost do
    redis.call('ZADD', key, now, member .. ':' .. i)
  end
  count = count + cost
  allowed = 1
end

local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end
if count > 0 then
  redis.call('PEXPIRE', key, math.ceil(window / 1000))
end
return {allowed, count, now, reset}
`)

// RedisBucketStore implements the sliding window on a Redis sorted set per
// key, so every replica shares one budget per caller.
type RedisBucketStore struct {
	client redis.Cmdable
}

// NewRedis creates a bucket store on the given client.
func NewRedis(client redis.Cmdable) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

// Allow checks if a request is allowed and records it when it is.
func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	return s.AllowN(ctx, key, 1, limit, window)
}

// AllowN admits cost requests at once, or none of them.
func (s *RedisBucketStore) AllowN(ctx context.Context, key string, cost int, limit int, window time.Duration) (*models.Result, error) {
	vals, err := allowScript.Run(ctx, s.client, []string{key},
		window.Microseconds(), limit, cost, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 4 {
		return nil, fmt.Errorf("rate limit script: unexpected reply of %d values", len(vals))
	}

	allowed, count := vals[0] == 1, int(vals[1])
	now, resetAt := time.UnixMicro(vals[2]), time.UnixMicro(vals[3])
	if allowed {
		return &models.Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - count,
			ResetAt:   resetAt,
		}, nil
	}
	return &models.Result{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: resetAt.Sub(now),
	}, nil
}

// Reset clears the counter for a key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset rate limit key: %w", err)
	}
	return nil
}

// GetCurrentCount returns the number of members in the key. Entries older
// than the window are only trimmed by the next Allow.
func (s *RedisBucketStore) GetCurrentCount(ctx context.Context, key string) (int, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("count rate limit key: %w", err)
	}
	return int(n), nil
}
