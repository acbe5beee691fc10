package service

import (
	"context"
	"time"
)

const (
	EventIPChanged       = "ip_changed"
	EventSessionsRevoked = "sessions_revoked"
	EventPasswordChanged = "password_changed"
)

// SecurityEvent is a notable change to a user's sessions.
type SecurityEvent struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	PreviousIP string    `json:"previous_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Revoked    int64     `json:"revoked,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers events on a best-effort basis; failures are logged
// by the implementation and never reach the request.
type EventPublisher interface {
	Publish(ctx context.Context, event SecurityEvent)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, SecurityEvent) {}

// MultiPublisher fans an event out to every publisher.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, event SecurityEvent) {
	for _, p := range m {
		p.Publish(ctx, event)
	}
}
