package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAPIKeyService(t *testing.T) (*APIKeyService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewAPIKeyService(rdb, zap.NewNop().Sugar()), mr
}

func TestAPIKeyService_SyncAndValidate(t *testing.T) {
	svc, mr := newAPIKeyService(t)
	ctx := context.Background()

	require.ErrorIs(t, svc.SyncAPIKey(ctx, ""), ErrAPIKeyEmpty)

	require.NoError(t, svc.SyncAPIKey(ctx, "first-key"))
	stored, err := mr.Get(CurrentAPIKeyRedisKey)
	require.NoError(t, err)
	assert.Equal(t, hashAPIKey("first-key"), stored)

	ok, err := svc.IsValidAPIKey(ctx, "first-key")
	require.NoError(t, err)
	assert.True(t, ok)

	for _, key := range []string{"", "other"} {
		ok, err = svc.IsValidAPIKey(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	// same key again is a no-op
	require.NoError(t, svc.SyncAPIKey(ctx, "first-key"))
	assert.False(t, mr.Exists(OldAPIKeyRedisKey))
}

func TestAPIKeyService_OldKeyGracePeriod(t *testing.T) {
	svc, _ := newAPIKeyService(t)
	ctx := context.Background()

	rotatedAt := time.Now()
	svc.now = func() time.Time { return rotatedAt }

	require.NoError(t, svc.SyncAPIKey(ctx, "first-key"))
	require.NoError(t, svc.SyncAPIKey(ctx, "second-key"))

	for _, key := range []string{"first-key", "second-key"} {
		ok, err := svc.IsValidAPIKey(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, key)
	}

	svc.now = func() time.Time { return rotatedAt.Add(apiKeyGracePeriod + time.Minute) }

	ok, err := svc.IsValidAPIKey(ctx, "first-key")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsValidAPIKey(ctx, "second-key")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAPIKeyService_RedisDown(t *testing.T) {
	svc, mr := newAPIKeyService(t)
	mr.Close()

	_, err := svc.IsValidAPIKey(context.Background(), "any")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
