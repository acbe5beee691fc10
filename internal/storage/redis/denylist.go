package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistKeyPrefix = "denylist:"

type DenylistStorage struct {
	client *redis.Client
}

func NewDenylistStorage(client *redis.Client) *DenylistStorage {
	return &DenylistStorage{client: client}
}

// Add stores the token id until ttl elapses, so the set never outgrows the
// population of still-valid access tokens.
func (s *DenylistStorage) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, denylistKeyPrefix+jti, "invalidated", ttl).Err(); err != nil {
		return fmt.Errorf("denylist add: %w", err)
	}
	return nil
}

// Contains проверяет наличие jti в Redis.
func (s *DenylistStorage) Contains(ctx context.Context, jti string) (bool, error) {
	result, err := s.client.Get(ctx, denylistKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("denylist lookup: %w", err)
	}
	return result == "invalidated", nil
}
