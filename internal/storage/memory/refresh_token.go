package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
)

type RefreshTokenRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.RefreshToken
	byHash map[string]int64
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{
		byID:   make(map[int64]*models.RefreshToken),
		byHash: make(map[string]int64),
	}
}

func (r *RefreshTokenRepository) CreateRefreshToken(_ context.Context, token models.RefreshToken) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insertLocked(token), nil
}

func (r *RefreshTokenRepository) FindValidRefreshToken(_ context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.lookupLocked(tokenHash)
	if !ok || !t.IsValid(now) {
		return nil, storage.ErrRefreshTokenNotFound
	}
	return t, nil
}

func (r *RefreshTokenRepository) FindRefreshToken(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.lookupLocked(tokenHash)
	if !ok {
		return nil, storage.ErrRefreshTokenNotFound
	}
	return t, nil
}

func (r *RefreshTokenRepository) RevokeRefreshToken(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.revokeLocked(id), nil
}

func (r *RefreshTokenRepository) RotateRefreshToken(_ context.Context, oldID int64, next models.RefreshToken) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.revokeLocked(oldID) {
		return 0, storage.ErrRefreshTokenNotFound
	}
	return r.insertLocked(next), nil
}

func (r *RefreshTokenRepository) RevokeAllUserRefreshTokens(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, t := range r.byID {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

func (r *RefreshTokenRepository) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, t := range r.byID {
		if !t.ExpiresAt.After(now) {
			delete(r.byHash, t.TokenHash)
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

// DeleteUserRefreshTokens mirrors the ON DELETE CASCADE of the users table.
func (r *RefreshTokenRepository) DeleteUserRefreshTokens(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.byID {
		if t.UserID == userID {
			delete(r.byHash, t.TokenHash)
			delete(r.byID, id)
		}
	}
}

func (r *RefreshTokenRepository) insertLocked(token models.RefreshToken) int64 {
	r.nextID++
	token.ID = r.nextID
	r.byID[token.ID] = &token
	r.byHash[token.TokenHash] = token.ID
	return token.ID
}

func (r *RefreshTokenRepository) revokeLocked(id int64) bool {
	t, ok := r.byID[id]
	if !ok || t.Revoked {
		return false
	}
	t.Revoked = true
	return true
}

// lookupLocked returns a copy so callers never alias stored rows.
func (r *RefreshTokenRepository) lookupLocked(tokenHash string) (*models.RefreshToken, bool) {
	id, ok := r.byHash[tokenHash]
	if !ok {
		return nil, false
	}
	cp := *r.byID[id]
	return &cp, true
}
