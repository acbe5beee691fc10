package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
)

const refreshTokenColumns = `id, user_id, token_hash, expires_at, revoked, ip_address, user_agent, created_at`

type RefreshTokenRepository struct {
	db storage.DBTX
}

func NewRefreshTokenRepository(db storage.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) CreateRefreshToken(ctx context.Context, token models.RefreshToken) (int64, error) {
	query := `INSERT INTO refresh_tokens (user_id, token_hash, expires_at, revoked, ip_address, user_agent, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	var id int64
	err := r.db.QueryRowContext(
		ctx,
		query,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.Revoked,
		nullString(token.IPAddress),
		nullString(token.UserAgent),
		token.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return id, nil
}

func (r *RefreshTokenRepository) FindValidRefreshToken(
	ctx context.Context,
	tokenHash string,
	now time.Time,
) (*models.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1 AND revoked = false AND expires_at > $2`
	token, err := scanRefreshToken(r.db.QueryRowContext(ctx, query, tokenHash, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to get valid refresh token: %w", err)
	}
	return token, nil
}

func (r *RefreshTokenRepository) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	token, err := scanRefreshToken(r.db.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return token, nil
}

// RevokeRefreshToken is a compare-and-set on the revoked flag.
func (r *RefreshTokenRepository) RevokeRefreshToken(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND revoked = false`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *RefreshTokenRepository) RevokeAllUserRefreshTokens(ctx context.Context, userID int64) (int64, error) {
	query := `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens rows affected: %w", err)
	}
	return n, nil
}

func (r *RefreshTokenRepository) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens rows affected: %w", err)
	}
	return n, nil
}

func scanRefreshToken(row *sql.Row) (*models.RefreshToken, error) {
	var (
		token     models.RefreshToken
		ipAddress sql.NullString
		userAgent sql.NullString
	)
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Revoked,
		&ipAddress,
		&userAgent,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	token.IPAddress = ipAddress.String
	token.UserAgent = userAgent.String
	return &token, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
