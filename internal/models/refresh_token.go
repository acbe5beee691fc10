package models

import "time"

// RefreshToken is the persisted form of a refresh token. Only the hash of
// the plaintext secret is ever stored.
type RefreshToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientMeta describes the client a token pair is issued to.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

func NewRefreshToken(userID int64, tokenHash string, meta ClientMeta, now time.Time, ttl time.Duration) RefreshToken {
	return RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(ttl),
		Revoked:   false,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
	}
}

// IsValid reports whether the token is unrevoked and strictly before expiry.
func (t RefreshToken) IsValid(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

// TokenPair is what a client receives on login, register and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

const TokenTypeBearer = "bearer"
