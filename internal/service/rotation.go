package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
)

// RotationState is the state of a single refresh attempt.
type RotationState string

const (
	StatePresented RotationState = "presented"
	StateValidated RotationState = "validated"
	StateRotated   RotationState = "rotated"
	StateRejected  RotationState = "rejected"
)

// PairIssuer mints an access token together with a fresh refresh token.
type PairIssuer struct {
	tokens *TokenService
	store  *RefreshTokenStore
}

func NewPairIssuer(tokens *TokenService, store *RefreshTokenStore) *PairIssuer {
	return &PairIssuer{tokens: tokens, store: store}
}

func (p *PairIssuer) IssuePair(ctx context.Context, user *models.User, meta models.ClientMeta) (*models.TokenPair, error) {
	access, err := p.tokens.Issue(user.ID, CustomClaims{Username: user.Username, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := p.store.Create(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	return p.pair(access, refresh), nil
}

func (p *PairIssuer) pair(access *IssuedToken, refresh string) *models.TokenPair {
	return &models.TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh,
		TokenType:    models.TokenTypeBearer,
		ExpiresIn:    int64(p.tokens.AccessTTL() / time.Second),
	}
}

// RotationService exchanges a refresh token for a new pair. Every token is
// single use: the presented one is revoked before its successor exists, so
// a replay of a rotated token is rejected.
type RotationService struct {
	pairs  *PairIssuer
	users  storage.UserRepository
	events EventPublisher
	log    *zap.SugaredLogger
}

func NewRotationService(pairs *PairIssuer, users storage.UserRepository, events EventPublisher, log *zap.SugaredLogger) *RotationService {
	return &RotationService{
		pairs:  pairs,
		users:  users,
		events: events,
		log:    log,
	}
}

// Rotate fails closed: once the presented token is revoked, any later error
// leaves the client without a valid refresh token.
func (r *RotationService) Rotate(ctx context.Context, plaintext string, meta models.ClientMeta) (*models.TokenPair, error) {
	r.log.Debugw("refresh attempt", "state", StatePresented, "ip", meta.IPAddress)

	record, err := r.pairs.store.FindValidByPlaintext(ctx, plaintext)
	if err != nil {
		r.reject(err)
		return nil, err
	}
	r.log.Debugw("refresh attempt", "state", StateValidated, "userID", record.UserID)

	previousIP := record.IPAddress

	newRefresh, err := r.pairs.store.Rotate(ctx, record, meta)
	if err != nil {
		r.reject(err)
		return nil, err
	}

	user, err := r.users.GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidOrExpiredRefreshToken
		}
		return nil, storageError("load user for rotation", err)
	}

	access, err := r.pairs.tokens.Issue(user.ID, CustomClaims{Username: user.Username, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	r.log.Debugw("refresh attempt", "state", StateRotated, "userID", user.ID)

	if previousIP != "" && meta.IPAddress != "" && previousIP != meta.IPAddress {
		r.events.Publish(ctx, SecurityEvent{
			Type:       EventIPChanged,
			UserID:     user.ID,
			IPAddress:  meta.IPAddress,
			PreviousIP: previousIP,
			UserAgent:  meta.UserAgent,
			OccurredAt: time.Now().UTC(),
		})
	}

	return r.pairs.pair(access, newRefresh), nil
}

func (r *RotationService) reject(err error) {
	if errors.Is(err, ErrInvalidOrExpiredRefreshToken) {
		r.log.Debugw("refresh attempt", "state", StateRejected)
		return
	}
	r.log.Warnw("refresh attempt", "state", StateRejected, "error", err)
}
