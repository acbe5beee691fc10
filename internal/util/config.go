package util

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour

	defaultBcryptCost    = 10
	defaultPurgeInterval = time.Hour

	defaultDBDriver     = "postgres"
	defaultAMQPExchange = "auth.security"

	RefreshTokenBytes = 32
	JWTLeeWay         = 5 * time.Second
	MinJWTSecretLen   = 32
)

var (
	ErrJWTSecretMissing  = errors.New("JWT_SECRET is not set")
	ErrJWTSecretTooShort = errors.New("JWT_SECRET is too short")
	ErrDatabaseURLEmpty  = errors.New("DATABASE_URL is not set")
	ErrRedisAddrEmpty    = errors.New("REDIS_ADDR is not set")
	ErrUnknownDBDriver   = errors.New("DB_DRIVER must be postgres or pgx")
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:      stringOrDefault("SERVER_ADDRESS", defaultServerAddr),
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
	}
}

type TokenConfig struct {
	JwtSecretKey []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Leeway       time.Duration
}

func NewTokenConfig() (*TokenConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, ErrJWTSecretMissing
	}
	if len(secret) < MinJWTSecretLen {
		return nil, ErrJWTSecretTooShort
	}

	return &TokenConfig{
		JwtSecretKey: []byte(secret),
		AccessTTL:    parseDurationOrDefault("ACCESS_TOKEN_TTL", defaultAccessTTL),
		RefreshTTL:   parseDurationOrDefault("REFRESH_TOKEN_TTL", defaultRefreshTTL),
		Leeway:       parseDurationOrDefault("JWT_LEEWAY", JWTLeeWay),
	}, nil
}

// AuthConfig holds account-flow knobs.
type AuthConfig struct {
	// DistinctLoginErrors exposes "unknown user" vs "wrong password" to clients.
	DistinctLoginErrors bool
	BcryptCost          int
}

func NewAuthConfig() *AuthConfig {
	return &AuthConfig{
		DistinctLoginErrors: parseBoolOrDefault("AUTH_DISTINCT_LOGIN_ERRORS", false),
		BcryptCost:          parseIntOrDefault("BCRYPT_COST", defaultBcryptCost),
	}
}

type PurgeConfig struct {
	Interval time.Duration
}

func NewPurgeConfig() *PurgeConfig {
	return &PurgeConfig{
		Interval: parseDurationOrDefault("REFRESH_TOKEN_PURGE_INTERVAL", defaultPurgeInterval),
	}
}

type EventsConfig struct {
	WebhookURL   string
	AMQPURL      string
	AMQPExchange string
}

func NewEventsConfig() *EventsConfig {
	return &EventsConfig{
		WebhookURL:   os.Getenv("WEBHOOK_URL"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: stringOrDefault("AMQP_EXCHANGE", defaultAMQPExchange),
	}
}

type AdminConfig struct {
	APIKey string
}

func NewAdminConfig() *AdminConfig {
	return &AdminConfig{APIKey: os.Getenv("AUTH_SERVICE_API_KEY")}
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}

func parseIntOrDefault(varName string, def int) int {
	if v := os.Getenv(varName); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Invalid integer in %s: %s, using default %d", varName, v, def)
	}
	return def
}

func parseBoolOrDefault(varName string, def bool) bool {
	if v := os.Getenv(varName); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("Invalid bool in %s: %s, using default %t", varName, v, def)
	}
	return def
}

func stringOrDefault(varName, def string) string {
	if v := strings.TrimSpace(os.Getenv(varName)); v != "" {
		return v
	}
	return def
}
