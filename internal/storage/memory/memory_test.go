package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
)

func TestDenylistStorage_LazyExpiry(t *testing.T) {
	d := NewDenylistStorage()
	ctx := context.Background()

	now := time.Now()
	d.now = func() time.Time { return now }

	require.NoError(t, d.Add(ctx, "a", time.Minute))
	require.NoError(t, d.Add(ctx, "b", -time.Second))
	assert.Equal(t, 1, d.Len())

	ok, err := d.Contains(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	d.now = func() time.Time { return now.Add(time.Minute) }
	ok, err = d.Contains(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, d.Len())
}

func TestRefreshTokenRepository_RotateIsCompareAndSet(t *testing.T) {
	repo := NewRefreshTokenRepository()
	ctx := context.Background()
	now := time.Now()

	id, err := repo.CreateRefreshToken(ctx, models.NewRefreshToken(1, "old", models.ClientMeta{}, now, time.Hour))
	require.NoError(t, err)

	newID, err := repo.RotateRefreshToken(ctx, id, models.NewRefreshToken(1, "new", models.ClientMeta{}, now, time.Hour))
	require.NoError(t, err)
	assert.NotEqual(t, id, newID)

	_, err = repo.RotateRefreshToken(ctx, id, models.NewRefreshToken(1, "other", models.ClientMeta{}, now, time.Hour))
	assert.ErrorIs(t, err, storage.ErrRefreshTokenNotFound)

	_, err = repo.FindRefreshToken(ctx, "other")
	assert.ErrorIs(t, err, storage.ErrRefreshTokenNotFound)
}

func TestRefreshTokenRepository_ReturnsCopies(t *testing.T) {
	repo := NewRefreshTokenRepository()
	ctx := context.Background()

	_, err := repo.CreateRefreshToken(ctx, models.NewRefreshToken(1, "h", models.ClientMeta{}, time.Now(), time.Hour))
	require.NoError(t, err)

	got, err := repo.FindRefreshToken(ctx, "h")
	require.NoError(t, err)
	got.Revoked = true

	again, err := repo.FindValidRefreshToken(ctx, "h", time.Now())
	require.NoError(t, err)
	assert.False(t, again.Revoked)
}

func TestStorage_DeleteUserCascades(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, models.NewUser("alice", "alice@example.com", "h"))
	require.NoError(t, err)
	_, err = s.CreateRefreshToken(ctx, models.NewRefreshToken(user.ID, "h1", models.ClientMeta{}, time.Now(), time.Hour))
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, models.NewUser("ALICE", "x@example.com", "h"))
	assert.ErrorIs(t, err, storage.ErrUsernameTaken)

	s.DeleteUser(user.ID)

	_, err = s.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	_, err = s.FindRefreshToken(ctx, "h1")
	assert.ErrorIs(t, err, storage.ErrRefreshTokenNotFound)
}
