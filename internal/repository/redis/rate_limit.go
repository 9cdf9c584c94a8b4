package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/taskhub/internal/core/port"
)

// RateLimitStore keeps per-key attempt timestamps in Redis sorted sets,
// scored by nanosecond time, so a sliding window is a plain range query.
type RateLimitStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRateLimitStore constructs a store using the provided Redis client.
// ttl bounds how long idle attempt sets survive; zero disables expiry.
func NewRateLimitStore(client *redis.Client, prefix string, ttl time.Duration) *RateLimitStore {
	return &RateLimitStore{client: client, prefix: prefix, ttl: ttl}
}

// Record appends an attempt timestamp and refreshes the key TTL.
func (s *RateLimitStore) Record(ctx context.Context, key string, at time.Time) error {
	redisKey := s.redisKey(key)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(at.UnixNano()), Member: at.UnixNano()})
	if s.ttl > 0 {
		pipe.Expire(ctx, redisKey, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	return nil
}

// Count reports attempts inside the window ending at now.
func (s *RateLimitStore) Count(ctx context.Context, key string, window time.Duration, now time.Time) (int, error) {
	lo, hi, err := spanBounds(window, now)
	if err != nil {
		return 0, err
	}

	count, err := s.client.ZCount(ctx, s.redisKey(key), lo, hi).Result()
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}

	return int(count), nil
}

// Prune drops attempts that fell out of the window ending at now.
func (s *RateLimitStore) Prune(ctx context.Context, key string, window time.Duration, now time.Time) error {
	lo, _, err := spanBounds(window, now)
	if err != nil {
		return err
	}

	if err := s.client.ZRemRangeByScore(ctx, s.redisKey(key), "-inf", "("+lo).Err(); err != nil {
		return fmt.Errorf("prune attempts: %w", err)
	}

	return nil
}

// Earliest returns the oldest attempt still inside the window. The limiter
// uses it to compute the retry-after hint once the limit is hit.
func (s *RateLimitStore) Earliest(ctx context.Context, key string, window time.Duration, now time.Time) (time.Time, bool, error) {
	lo, hi, err := spanBounds(window, now)
	if err != nil {
		return time.Time{}, false, err
	}

	members, err := s.client.ZRangeByScore(ctx, s.redisKey(key), &redis.ZRangeBy{
		Min:   lo,
		Max:   hi,
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("earliest attempt: %w", err)
	}

	if len(members) == 0 {
		return time.Time{}, false, nil
	}

	nanos, err := strconv.ParseInt(members[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse attempt timestamp: %w", err)
	}

	return time.Unix(0, nanos), true, nil
}

func spanBounds(window time.Duration, now time.Time) (string, string, error) {
	if window <= 0 {
		return "", "", errors.New("window must be positive")
	}

	lo := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	hi := strconv.FormatInt(now.UnixNano(), 10)
	return lo, hi, nil
}

func (s *RateLimitStore) redisKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
