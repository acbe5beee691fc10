package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rryowa/authsession/internal/storage/memory"
	redisstorage "github.com/rryowa/authsession/internal/storage/redis"
)

type failingDenylist struct{}

func (failingDenylist) Add(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

func (failingDenylist) Contains(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestTokenService_IssueVerify(t *testing.T) {
	ts := NewTokenService(newTokenConfig(), memory.NewDenylistStorage())

	issued, err := ts.Issue(42, CustomClaims{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, issued.JTI)

	claims, err := ts.Verify(context.Background(), issued.Token)
	require.NoError(t, err)

	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, issued.JTI, claims.ID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)

	id, err := claims.UserIDInt()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestTokenService_IssueUsesFreshJTI(t *testing.T) {
	ts := NewTokenService(newTokenConfig(), memory.NewDenylistStorage())

	a, err := ts.Issue(1, CustomClaims{})
	require.NoError(t, err)
	b, err := ts.Issue(1, CustomClaims{})
	require.NoError(t, err)

	assert.NotEqual(t, a.JTI, b.JTI)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestTokenService_VerifyExpired(t *testing.T) {
	ts := NewTokenService(newTokenConfig(), memory.NewDenylistStorage())

	past := time.Now().Add(-2 * time.Hour)
	ts.now = func() time.Time { return past }
	issued, err := ts.Issue(1, CustomClaims{})
	require.NoError(t, err)

	ts.now = time.Now
	_, err = ts.Verify(context.Background(), issued.Token)
	require.ErrorIs(t, err, ErrInvalidOrExpiredAccessToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenService_VerifyWithinLeeway(t *testing.T) {
	ts := NewTokenService(newTokenConfig(), memory.NewDenylistStorage())

	issued, err := ts.Issue(1, CustomClaims{})
	require.NoError(t, err)

	ts.now = func() time.Time { return issued.ExpiresAt.Add(ts.leeway / 2) }
	_, err = ts.Verify(context.Background(), issued.Token)
	assert.NoError(t, err)
}

func TestTokenService_VerifyRejectsForeignTokens(t *testing.T) {
	ts := NewTokenService(newTokenConfig(), memory.NewDenylistStorage())

	otherCfg := newTokenConfig()
	otherCfg.JwtSecretKey = []byte(strings.Repeat("x", 40))
	other := NewTokenService(otherCfg, memory.NewDenylistStorage())
	foreign, err := other.Issue(1, CustomClaims{})
	require.NoError(t, err)

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &AccessClaims{
		UserID: "1",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	noJTI, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &AccessClaims{
		UserID: "1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &AccessClaims{
		UserID:           "1",
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti", Subject: "1"},
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", foreign.Token},
		{"wrong algorithm", hs256},
		{"missing jti", noJTI},
		{"missing exp", noExp},
		{"garbage", "not-a-jwt"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidOrExpiredAccessToken)
		})
	}
}

func TestTokenService_InvalidateDenylists(t *testing.T) {
	denylist := memory.NewDenylistStorage()
	ts := NewTokenService(newTokenConfig(), denylist)
	ctx := context.Background()

	issued, err := ts.Issue(7, CustomClaims{})
	require.NoError(t, err)
	claims, err := ts.Verify(ctx, issued.Token)
	require.NoError(t, err)

	require.NoError(t, ts.Invalidate(ctx, claims))

	_, err = ts.Verify(ctx, issued.Token)
	require.ErrorIs(t, err, ErrAccessTokenDenylisted)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredAccessToken)

	other, err := ts.Issue(7, CustomClaims{})
	require.NoError(t, err)
	_, err = ts.Verify(ctx, other.Token)
	assert.NoError(t, err)
}

func TestTokenService_InvalidateExpiredIsNoop(t *testing.T) {
	denylist := memory.NewDenylistStorage()
	ts := NewTokenService(newTokenConfig(), denylist)

	claims := &AccessClaims{
		UserID: "1",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "old",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	require.NoError(t, ts.Invalidate(context.Background(), claims))
	require.NoError(t, ts.Invalidate(context.Background(), nil))
	assert.Zero(t, denylist.Len())
}

func TestTokenService_DenylistUnavailable(t *testing.T) {
	ts := NewTokenService(newTokenConfig(), failingDenylist{})

	issued, err := ts.Issue(1, CustomClaims{})
	require.NoError(t, err)

	_, err = ts.Verify(context.Background(), issued.Token)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidOrExpiredAccessToken)
}

func TestTokenService_RedisDenylistExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ts := NewTokenService(newTokenConfig(), redisstorage.NewDenylistStorage(rdb))
	ctx := context.Background()

	issued, err := ts.Issue(3, CustomClaims{})
	require.NoError(t, err)
	claims, err := ts.Verify(ctx, issued.Token)
	require.NoError(t, err)

	require.NoError(t, ts.Invalidate(ctx, claims))
	_, err = ts.Verify(ctx, issued.Token)
	require.ErrorIs(t, err, ErrAccessTokenDenylisted)

	ttl := mr.TTL("denylist:" + claims.ID)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour+ts.leeway)

	mr.FastForward(time.Hour + ts.leeway + time.Second)
	assert.False(t, mr.Exists("denylist:"+claims.ID))
}
