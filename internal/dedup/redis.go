package dedup

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "monitor:seen:"

// RedisStore keeps one Redis set per profile, which survives restarts. SADD
// is atomic, so the admit contract holds across processes too.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Admit implements SeenStore.
func (s *RedisStore) Admit(ctx context.Context, profileID, itemID string) (bool, error) {
	added, err := s.rdb.SAdd(ctx, redisKeyPrefix+profileID, itemID).Result()
	if err != nil {
		return false, fmt.Errorf("redis sadd: %w", err)
	}
	return added == 1, nil
}

// Forget drops a profile's seen-set.
func (s *RedisStore) Forget(ctx context.Context, profileID string) error {
	if err := s.rdb.Del(ctx, redisKeyPrefix+profileID).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
