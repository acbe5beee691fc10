package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage/memory"
	"github.com/rryowa/authsession/internal/util"
)

var testSecret = []byte(strings.Repeat("s", util.MinJWTSecretLen))

type recordingPublisher struct {
	mu     sync.Mutex
	events []SecurityEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event SecurityEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ofType(typ string) []SecurityEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []SecurityEvent
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	storage  *memory.Storage
	denylist *memory.DenylistStorage
	tokens   *TokenService
	refresh  *RefreshTokenStore
	events   *recordingPublisher
	auth     *AuthService
}

func newTokenConfig() *util.TokenConfig {
	return &util.TokenConfig{
		JwtSecretKey: testSecret,
		AccessTTL:    time.Hour,
		RefreshTTL:   30 * 24 * time.Hour,
		Leeway:       util.JWTLeeWay,
	}
}

func newTestEnv(t *testing.T, authCfg *util.AuthConfig) *testEnv {
	t.Helper()

	if authCfg == nil {
		authCfg = &util.AuthConfig{BcryptCost: bcrypt.MinCost}
	}

	env := &testEnv{
		storage:  memory.NewStorage(),
		denylist: memory.NewDenylistStorage(),
		events:   &recordingPublisher{},
	}
	cfg := newTokenConfig()
	env.tokens = NewTokenService(cfg, env.denylist)
	env.refresh = NewRefreshTokenStore(env.storage, cfg.RefreshTTL)
	env.auth = NewAuthService(
		authCfg,
		env.storage,
		NewBcryptHasher(authCfg.BcryptCost),
		env.tokens,
		env.refresh,
		env.events,
		zap.NewNop().Sugar(),
	)
	return env
}

func (e *testEnv) register(t *testing.T, username string) (*models.User, *models.TokenPair) {
	t.Helper()

	user, pair, err := e.auth.Register(context.Background(), models.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-pass",
	}, models.ClientMeta{IPAddress: "10.0.0.1", UserAgent: "test"})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user, pair
}
