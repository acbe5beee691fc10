package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type RevocationService struct {
	store  *RefreshTokenStore
	tokens *TokenService
	events EventPublisher
	log    *zap.SugaredLogger
}

func NewRevocationService(store *RefreshTokenStore, tokens *TokenService, events EventPublisher, log *zap.SugaredLogger) *RevocationService {
	return &RevocationService{
		store:  store,
		tokens: tokens,
		events: events,
		log:    log,
	}
}

// RevokeSession revokes one refresh token owned by ownerID. Unknown tokens
// and tokens of other users are ignored so logout stays idempotent. It
// reports whether a record was touched.
func (s *RevocationService) RevokeSession(ctx context.Context, plaintext string, ownerID int64) (bool, error) {
	record, err := s.store.findByPlaintext(ctx, plaintext)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	if record.UserID != ownerID {
		s.log.Warnw("refusing to revoke refresh token of another user", "userID", ownerID)
		return false, nil
	}

	if err := s.store.Revoke(ctx, record); err != nil {
		return false, err
	}
	return true, nil
}

// RevokeAllSessions revokes every refresh token of the user and denylists
// the access token of the acting session.
func (s *RevocationService) RevokeAllSessions(ctx context.Context, userID int64, current *AccessClaims) (int64, error) {
	n, err := s.store.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.tokens.Invalidate(ctx, current); err != nil {
		return n, err
	}

	s.log.Infow("revoked all sessions", "userID", userID, "count", n)
	s.events.Publish(ctx, SecurityEvent{
		Type:       EventSessionsRevoked,
		UserID:     userID,
		Revoked:    n,
		OccurredAt: time.Now().UTC(),
	})

	return n, nil
}
