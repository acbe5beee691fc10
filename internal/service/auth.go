package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
	"github.com/rryowa/authsession/internal/util"
)

type AuthService struct {
	users      storage.UserRepository
	hasher     PasswordHasher
	tokens     *TokenService
	pairs      *PairIssuer
	rotation   *RotationService
	revocation *RevocationService
	events     EventPublisher
	log        *zap.SugaredLogger

	distinctLoginErrors bool
}

func NewAuthService(
	cfg *util.AuthConfig,
	users storage.UserRepository,
	hasher PasswordHasher,
	tokens *TokenService,
	store *RefreshTokenStore,
	events EventPublisher,
	log *zap.SugaredLogger,
) *AuthService {
	pairs := NewPairIssuer(tokens, store)

	return &AuthService{
		users:               users,
		hasher:              hasher,
		tokens:              tokens,
		pairs:               pairs,
		rotation:            NewRotationService(pairs, users, events, log),
		revocation:          NewRevocationService(store, tokens, events, log),
		events:              events,
		log:                 log,
		distinctLoginErrors: cfg.DistinctLoginErrors,
	}
}

// Register hashes the password before the user is built and returns the
// stored user with a fresh token pair.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest, meta models.ClientMeta) (*models.User, *models.TokenPair, error) {
	if err := validateRegister(req); err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.CreateUser(ctx, models.NewUser(req.Username, req.Email, hash))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUsernameTaken):
			return nil, nil, newFieldError("username", "username already taken")
		case errors.Is(err, storage.ErrEmailTaken):
			return nil, nil, newFieldError("email", "email already registered")
		}
		return nil, nil, storageError("create user", err)
	}

	pair, err := s.pairs.IssuePair(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}

	s.log.Infow("user registered", "userID", user.ID)
	return user, pair, nil
}

// Login returns ErrUnknownUser or ErrWrongPassword when distinct login
// errors are enabled, and the bare ErrInvalidCredentials otherwise.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, meta models.ClientMeta) (*models.User, *models.TokenPair, error) {
	if err := validateLogin(req); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, nil, s.loginFailure(ErrUnknownUser)
		}
		return nil, nil, storageError("get user by email", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, ErrWrongPassword) {
			return nil, nil, s.loginFailure(ErrWrongPassword)
		}
		return nil, nil, err
	}

	pair, err := s.pairs.IssuePair(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *AuthService) loginFailure(err error) error {
	s.log.Debugw("login rejected", "reason", err)
	if s.distinctLoginErrors {
		return err
	}
	return ErrInvalidCredentials
}

// Refresh validates the request and runs one rotation.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest, meta models.ClientMeta) (*models.TokenPair, error) {
	if err := validateRefresh(req.RefreshToken); err != nil {
		return nil, err
	}
	return s.rotation.Rotate(ctx, req.RefreshToken, meta)
}

// Authenticate verifies a bearer access token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*AccessClaims, error) {
	return s.tokens.Verify(ctx, accessToken)
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidOrExpiredAccessToken
		}
		return nil, storageError("get user by id", err)
	}
	return user, nil
}

// Logout denylists the access token and, if given, revokes the caller's
// refresh token.
func (s *AuthService) Logout(ctx context.Context, claims *AccessClaims, refreshToken string) error {
	userID, err := claims.UserIDInt()
	if err != nil {
		return err
	}

	if refreshToken != "" {
		if _, err := s.revocation.RevokeSession(ctx, refreshToken, userID); err != nil {
			return err
		}
	}

	return s.tokens.Invalidate(ctx, claims)
}

func (s *AuthService) LogoutAll(ctx context.Context, claims *AccessClaims) (int64, error) {
	userID, err := claims.UserIDInt()
	if err != nil {
		return 0, err
	}
	return s.revocation.RevokeAllSessions(ctx, userID, claims)
}

// ChangePassword closes every session of the user, the acting one included,
// and then replaces the password hash. It returns the number of revoked
// refresh tokens.
func (s *AuthService) ChangePassword(ctx context.Context, claims *AccessClaims, req models.ChangePasswordRequest) (int64, error) {
	if err := validateChangePassword(req); err != nil {
		return 0, err
	}

	userID, err := claims.UserIDInt()
	if err != nil {
		return 0, err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		return 0, err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return 0, err
	}

	// sessions go first: a failure here leaves the old password in place
	// rather than a new password next to live sessions
	n, err := s.revocation.RevokeAllSessions(ctx, userID, claims)
	if err != nil {
		return 0, err
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return 0, ErrInvalidOrExpiredAccessToken
		}
		return 0, storageError("update password", err)
	}

	s.events.Publish(ctx, SecurityEvent{
		Type:       EventPasswordChanged,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	})

	return n, nil
}
