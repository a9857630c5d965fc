// Package devcode provides an in-memory store of the latest sign-in code per
// email address, used only when the dev code endpoint is enabled
// (GET /dev/sign-in-code). Never wired up in production.
package devcode

import (
	"context"
	"sync"
	"time"
)

// Store holds plain sign-in codes by (tenant, email) for dev-only retrieval.
type Store interface {
	// Put stores the code delivered to email until expiresAt, replacing any
	// earlier one.
	Put(ctx context.Context, tenantID, email, code string, expiresAt time.Time)
	// Get returns the latest code for (tenantID, email) if present and not
	// expired. Returns ok false if missing or expired.
	Get(ctx context.Context, tenantID, email string) (code string, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev code store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

func key(tenantID, email string) string {
	return tenantID + "|" + email
}

// Put stores the code for (tenantID, email) until expiresAt.
func (s *MemoryStore) Put(_ context.Context, tenantID, email, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(tenantID, email)] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the latest code for (tenantID, email) if present and not expired.
func (s *MemoryStore) Get(_ context.Context, tenantID, email string) (string, bool) {
	k := key(tenantID, email)
	s.mu.RLock()
	e, ok := s.m[k]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, k)
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}

// Noop is a Store that keeps nothing; the production wiring.
type Noop struct{}

func (Noop) Put(context.Context, string, string, string, time.Time) {}
func (Noop) Get(context.Context, string, string) (string, bool)    { return "", false }
