package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	CurrentAPIKeyRedisKey      = "apikey:current"
	OldAPIKeyRedisKey          = "apikey:old"
	APIKeyRotationTimeRedisKey = "apikey:rotation_time"

	apiKeyGracePeriod = 24 * time.Hour
)

var ErrAPIKeyEmpty = errors.New("admin API key is empty")

// APIKeyService guards the admin endpoints. Only the sha256 of the key is
// kept in redis; after a key change the previous one keeps working for
// apiKeyGracePeriod.
type APIKeyService struct {
	rdb redis.Cmdable
	log *zap.SugaredLogger
	now func() time.Time
}

func NewAPIKeyService(rdb redis.Cmdable, log *zap.SugaredLogger) *APIKeyService {
	return &APIKeyService{rdb: rdb, log: log, now: time.Now}
}

// SyncAPIKey makes key the current admin key.
func (s *APIKeyService) SyncAPIKey(ctx context.Context, key string) error {
	if key == "" {
		return ErrAPIKeyEmpty
	}

	hashedNewKey := hashAPIKey(key)

	currentHashedKey, err := s.rdb.Get(ctx, CurrentAPIKeyRedisKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.log.Warn("Current API key not found during sync; initializing.")
			return s.setInitialAPIKey(ctx, hashedNewKey)
		}
		return fmt.Errorf("failed to get current API key from Redis: %w", err)
	}

	if keysEqual(hashedNewKey, currentHashedKey) {
		s.log.Info("Skipping key sync: new key is the same as the current one.")
		return nil
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, OldAPIKeyRedisKey, currentHashedKey, apiKeyGracePeriod)
	pipe.Set(ctx, CurrentAPIKeyRedisKey, hashedNewKey, 0)
	pipe.Set(ctx, APIKeyRotationTimeRedisKey, s.now().UTC().Format(time.RFC3339), 0)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to sync API key in Redis: %w", err)
	}

	s.log.Info("API Key synced successfully.")
	return nil
}

func (s *APIKeyService) IsValidAPIKey(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}

	hashedKey := hashAPIKey(key)

	currentHashedKey, err := s.rdb.Get(ctx, CurrentAPIKeyRedisKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, storageError("get current API key", err)
	}
	if keysEqual(hashedKey, currentHashedKey) {
		return true, nil
	}

	oldHashedKey, err := s.rdb.Get(ctx, OldAPIKeyRedisKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, storageError("get old API key", err)
	}
	if oldHashedKey == "" || !keysEqual(hashedKey, oldHashedKey) {
		return false, nil
	}

	rotationTimeStr, err := s.rdb.Get(ctx, APIKeyRotationTimeRedisKey).Result()
	if err != nil {
		return false, storageError("get key rotation time", err)
	}
	rotationTime, err := time.Parse(time.RFC3339, rotationTimeStr)
	if err != nil {
		return false, fmt.Errorf("failed to parse key rotation time: %w", err)
	}

	return s.now().Sub(rotationTime) <= apiKeyGracePeriod, nil
}

func (s *APIKeyService) setInitialAPIKey(ctx context.Context, hashedKey string) error {
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, CurrentAPIKeyRedisKey, hashedKey, 0)
	pipe.Set(ctx, APIKeyRotationTimeRedisKey, s.now().UTC().Format(time.RFC3339), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("init API key: %w", err)
	}
	s.log.Info("API Key initialized in Redis.")
	return nil
}

func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

func keysEqual(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
