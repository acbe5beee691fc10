package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
	"github.com/rryowa/authsession/internal/util"
)

// RefreshTokenStore owns refresh token generation, hashing and validity.
// The plaintext secret leaves this type exactly once, from Create or Rotate.
type RefreshTokenStore struct {
	repo    storage.RefreshTokenRepository
	ttl     time.Duration
	now     func() time.Time
	entropy io.Reader
}

func NewRefreshTokenStore(repo storage.RefreshTokenRepository, ttl time.Duration) *RefreshTokenStore {
	return &RefreshTokenStore{
		repo:    repo,
		ttl:     ttl,
		now:     time.Now,
		entropy: rand.Reader,
	}
}

func (s *RefreshTokenStore) TTL() time.Duration {
	return s.ttl
}

// HashRefreshToken is the one-way form persisted for a plaintext token.
func HashRefreshToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func (s *RefreshTokenStore) Create(ctx context.Context, userID int64, meta models.ClientMeta) (string, error) {
	plaintext, record, err := s.newRecord(userID, meta)
	if err != nil {
		return "", err
	}

	if _, err := s.repo.CreateRefreshToken(ctx, record); err != nil {
		return "", storageError("create refresh token", err)
	}
	return plaintext, nil
}

// FindValidByPlaintext returns ErrInvalidOrExpiredRefreshToken for unknown,
// expired and revoked tokens alike.
func (s *RefreshTokenStore) FindValidByPlaintext(ctx context.Context, plaintext string) (*models.RefreshToken, error) {
	if plaintext == "" {
		return nil, ErrInvalidOrExpiredRefreshToken
	}

	record, err := s.repo.FindValidRefreshToken(ctx, HashRefreshToken(plaintext), s.now())
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			return nil, ErrInvalidOrExpiredRefreshToken
		}
		return nil, storageError("find refresh token", err)
	}
	return record, nil
}

// findByPlaintext looks a token up regardless of its state.
func (s *RefreshTokenStore) findByPlaintext(ctx context.Context, plaintext string) (*models.RefreshToken, error) {
	if plaintext == "" {
		return nil, nil
	}

	record, err := s.repo.FindRefreshToken(ctx, HashRefreshToken(plaintext))
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			return nil, nil
		}
		return nil, storageError("find refresh token", err)
	}
	return record, nil
}

// Revoke is idempotent.
func (s *RefreshTokenStore) Revoke(ctx context.Context, record *models.RefreshToken) error {
	if _, err := s.repo.RevokeRefreshToken(ctx, record.ID); err != nil {
		return storageError("revoke refresh token", err)
	}
	record.Revoked = true
	return nil
}

// Rotate revokes record with a compare-and-set and issues a successor for
// the same user. Losing a concurrent race yields
// ErrInvalidOrExpiredRefreshToken.
func (s *RefreshTokenStore) Rotate(ctx context.Context, record *models.RefreshToken, meta models.ClientMeta) (string, error) {
	plaintext, next, err := s.newRecord(record.UserID, meta)
	if err != nil {
		return "", err
	}

	if _, err := s.repo.RotateRefreshToken(ctx, record.ID, next); err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			return "", ErrInvalidOrExpiredRefreshToken
		}
		return "", storageError("rotate refresh token", err)
	}
	record.Revoked = true
	return plaintext, nil
}

func (s *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.RevokeAllUserRefreshTokens(ctx, userID)
	if err != nil {
		return 0, storageError("revoke user refresh tokens", err)
	}
	return n, nil
}

func (s *RefreshTokenStore) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		return 0, storageError("purge expired refresh tokens", err)
	}
	return n, nil
}

func (s *RefreshTokenStore) newRecord(userID int64, meta models.ClientMeta) (string, models.RefreshToken, error) {
	raw := make([]byte, util.RefreshTokenBytes)
	if _, err := io.ReadFull(s.entropy, raw); err != nil {
		return "", models.RefreshToken{}, fmt.Errorf("failed to read random bytes: %w", err)
	}

	plaintext := base64.RawURLEncoding.EncodeToString(raw)
	record := models.NewRefreshToken(userID, HashRefreshToken(plaintext), meta, s.now().UTC(), s.ttl)
	return plaintext, record, nil
}
