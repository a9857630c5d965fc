// Package events defines the fire-and-forget auth event stream. Emission is
// best-effort by contract: no caller may fail or roll back a primary
// operation because an event could not be written.
package events

import (
	"context"
	"time"
)

// Event types emitted by the auth services.
const (
	TypeCodeSent        = "code.sent"
	TypeCodeRedeemed    = "code.redeemed"
	TypeUserCreated     = "user.created"
	TypeSessionCreated  = "session.created"
	TypeSessionRevoked  = "session.revoked"
	TypeSessionsRevoked = "sessions.revoked"
)

// Event is one auth event. Payloads carry identifiers only, never codes,
// tokens, or password material.
type Event struct {
	Type     string            `json:"type"`
	TenantID string            `json:"tenant_id"`
	UserID   string            `json:"user_id,omitempty"`
	At       time.Time         `json:"at"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Emitter emits auth events. Callers use it best-effort: log and ignore errors.
type Emitter interface {
	// Emit sends a single event. Implementations may block briefly.
	Emit(ctx context.Context, e Event) error
	// Close releases resources (e.g. the Kafka writer). Safe to call if already closed.
	Close() error
}

// Noop is an Emitter that discards everything; used when no brokers are configured.
type Noop struct{}

func (Noop) Emit(context.Context, Event) error { return nil }
func (Noop) Close() error                      { return nil }
