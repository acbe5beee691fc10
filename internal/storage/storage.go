package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rryowa/authsession/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrEmailTaken           = errors.New("email already registered")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Storage interface {
	UserRepository
	RefreshTokenRepository
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

type RefreshTokenRepository interface {
	CreateRefreshToken(ctx context.Context, token models.RefreshToken) (int64, error)
	// FindValidRefreshToken returns ErrRefreshTokenNotFound unless the row is
	// unrevoked and expires strictly after now.
	FindValidRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error)
	FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	// RevokeRefreshToken flips revoked only if it was false and reports
	// whether this call did the flip.
	RevokeRefreshToken(ctx context.Context, id int64) (bool, error)
	// RotateRefreshToken revokes oldID and inserts next as one unit. It
	// returns ErrRefreshTokenNotFound if oldID was already revoked.
	RotateRefreshToken(ctx context.Context, oldID int64, next models.RefreshToken) (int64, error)
	RevokeAllUserRefreshTokens(ctx context.Context, userID int64) (int64, error)
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// DenylistRepository is a TTL-expiring set of invalidated access-token ids.
// Multi-instance deployments must back it with a shared cache.
type DenylistRepository interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}
