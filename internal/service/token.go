package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rryowa/authsession/internal/storage"
	"github.com/rryowa/authsession/internal/util"
)

var ErrInvalidSigningMethod = errors.New("invalid signing method")

// AccessClaims are the claims of an access token. Only non-sensitive
// profile attributes go next to the registered claims.
type AccessClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserIDInt parses the uid claim.
func (c *AccessClaims) UserIDInt() (int64, error) {
	id, err := strconv.ParseInt(c.UserID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad uid claim", ErrInvalidOrExpiredAccessToken)
	}
	return id, nil
}

// CustomClaims are the caller-supplied claims embedded in a new token.
type CustomClaims struct {
	Username string
	Email    string
}

type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

type TokenService struct {
	jwtSecretKey []byte
	accessTTL    time.Duration
	leeway       time.Duration
	denylist     storage.DenylistRepository
	now          func() time.Time
}

func NewTokenService(cfg *util.TokenConfig, denylist storage.DenylistRepository) *TokenService {
	return &TokenService{
		jwtSecretKey: cfg.JwtSecretKey,
		accessTTL:    cfg.AccessTTL,
		leeway:       cfg.Leeway,
		denylist:     denylist,
		now:          time.Now,
	}
}

func (ts *TokenService) AccessTTL() time.Duration {
	return ts.accessTTL
}

// Issue создает HS512 signed access токен с новым JTI.
func (ts *TokenService) Issue(userID int64, custom CustomClaims) (*IssuedToken, error) {
	now := ts.now()
	jti := uuid.NewString()
	expiresAt := now.Add(ts.accessTTL)
	uid := strconv.FormatInt(userID, 10)

	claims := &AccessClaims{
		UserID:   uid,
		Username: custom.Username,
		Email:    custom.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signedToken, err := token.SignedString(ts.jwtSecretKey)
	if err != nil {
		return nil, fmt.Errorf("signed string: %w", err)
	}

	return &IssuedToken{Token: signedToken, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Verify checks signature and expiry, then the denylist.
func (ts *TokenService) Verify(ctx context.Context, token string) (*AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(ts.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}

	parsedToken, err := jwt.ParseWithClaims(
		token,
		&AccessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
				return nil, ErrInvalidSigningMethod
			}
			return ts.jwtSecretKey, nil
		},
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOrExpiredAccessToken, err)
	}

	claims, ok := parsedToken.Claims.(*AccessClaims)
	if !ok || !parsedToken.Valid || claims.UserID == "" || claims.ID == "" || claims.Subject != claims.UserID {
		return nil, ErrInvalidOrExpiredAccessToken
	}

	denied, err := ts.denylist.Contains(ctx, claims.ID)
	if err != nil {
		return nil, storageError("check access token denylist", err)
	}
	if denied {
		return nil, ErrAccessTokenDenylisted
	}

	return claims, nil
}

// Invalidate denylists the token id for the rest of its lifetime.
func (ts *TokenService) Invalidate(ctx context.Context, claims *AccessClaims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	// leeway keeps the entry alive as long as the parser would still accept the token
	remaining := claims.ExpiresAt.Add(ts.leeway).Sub(ts.now())
	if remaining <= 0 {
		return nil
	}

	if err := ts.denylist.Add(ctx, claims.ID, remaining); err != nil {
		return storageError("denylist access token", err)
	}
	return nil
}
