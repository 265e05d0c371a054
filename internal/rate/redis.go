package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "authcore:attempts:"

// RedisStore persists attempts in a Redis sorted set per client key, scored
// by nanosecond timestamp. Attempts survive restarts and are shared across
// replicas pointing at the same Redis.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// CountSince prunes entries at or before cutoff and returns the remaining
// cardinality.
func (s *RedisStore) CountSince(ctx context.Context, key string, cutoff time.Time) (int, error) {
	rkey := redisKeyPrefix + key

	if err := s.client.ZRemRangeByScore(ctx, rkey, "-inf", fmt.Sprintf("%d", cutoff.UnixNano())).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	count, err := s.client.ZCard(ctx, rkey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return int(count), nil
}

// Record adds an attempt member scored at the attempt time. The member
// carries a UUID suffix so two attempts in the same nanosecond both count.
// The key expires one minute past the window to bound orphaned state.
func (s *RedisStore) Record(ctx context.Context, key string, at time.Time, window time.Duration) error {
	rkey := redisKeyPrefix + key

	member := fmt.Sprintf("%d:%s", at.UnixNano(), uuid.NewString())
	if err := s.client.ZAdd(ctx, rkey, redis.Z{Score: float64(at.UnixNano()), Member: member}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := s.client.Expire(ctx, rkey, window+time.Minute).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Clear deletes the sorted set for key.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
