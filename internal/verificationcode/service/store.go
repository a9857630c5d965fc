// Package service implements the verification code store: issuing opaque
// single-use codes and the peek/consume state machine every ceremony runs on.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"tenantauth/internal/autherr"
	"tenantauth/internal/security"
	"tenantauth/internal/verificationcode/domain"
	"tenantauth/internal/verificationcode/repository"
)

// DefaultExpiry applies when a ceremony does not pick its own code lifetime.
const DefaultExpiry = 7 * 24 * time.Hour

// CreateParams describes one code to issue. Data and Method are the already
// serialized payloads; schema checking happens in the ceremony layer where the
// concrete types are known.
type CreateParams struct {
	TenantID    string
	Type        domain.CodeType
	Data        json.RawMessage
	Method      json.RawMessage
	ExpiresIn   time.Duration
	CallbackURL *string
}

// Issued is what Create returns to the ceremony: the raw code (the caller
// must deliver it, never log it) and, when a callback URL was given, the link
// embedding the code as the `code` query parameter.
type Issued struct {
	Code      string
	Link      *url.URL
	ExpiresAt time.Time
}

// Store issues and redeems verification codes on top of the repository.
// All methods are safe for concurrent use.
type Store struct {
	repo repository.Repository
	now  func() time.Time
}

// NewStore returns a Store using repo for persistence.
func NewStore(repo repository.Repository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// WithNow overrides the clock; for tests.
func (s *Store) WithNow(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create generates a random opaque code and persists an unused row for it.
func (s *Store) Create(ctx context.Context, p CreateParams) (*Issued, error) {
	if p.TenantID == "" || p.Type == "" {
		return nil, fmt.Errorf("verification code: tenant id and type are required")
	}
	code, err := security.GenerateCode(security.DefaultCodeLength)
	if err != nil {
		return nil, fmt.Errorf("verification code: generate: %w", err)
	}
	expiresIn := p.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = DefaultExpiry
	}
	now := s.now().UTC()
	row := &domain.Code{
		ID:          uuid.New().String(),
		TenantID:    p.TenantID,
		Type:        p.Type,
		Code:        code,
		Data:        p.Data,
		Method:      p.Method,
		CallbackURL: p.CallbackURL,
		ExpiresAt:   now.Add(expiresIn),
		CreatedAt:   now,
	}
	if row.Data == nil {
		row.Data = json.RawMessage("{}")
	}
	if row.Method == nil {
		row.Method = json.RawMessage("{}")
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("verification code: create: %w", err)
	}

	issued := &Issued{Code: code, ExpiresAt: row.ExpiresAt}
	if p.CallbackURL != nil {
		link, err := url.Parse(*p.CallbackURL)
		if err != nil {
			return nil, fmt.Errorf("verification code: callback url: %w", err)
		}
		q := link.Query()
		q.Set("code", code)
		link.RawQuery = q.Encode()
		issued.Link = link
	}
	return issued, nil
}

// Peek looks a code up without consuming it. It enforces tenant scoping and
// expiry and distinguishes the three failure states with typed errors:
// autherr.ErrVerificationCodeNotFound, ...Expired, ...AlreadyUsed. Advisory
// only: a successful Peek guarantees nothing about a later Consume.
func (s *Store) Peek(ctx context.Context, tenantID string, typ domain.CodeType, code string) (*domain.Code, error) {
	row, err := s.repo.GetByCode(ctx, tenantID, typ, code)
	if err != nil {
		return nil, fmt.Errorf("verification code: peek: %w", err)
	}
	return s.classify(row)
}

// Consume atomically spends the code. At most one call for a given code ever
// succeeds; concurrent losers get autherr.ErrVerificationCodeAlreadyUsed.
func (s *Store) Consume(ctx context.Context, tenantID string, typ domain.CodeType, code string) (*domain.Code, error) {
	row, consumed, err := s.repo.Consume(ctx, tenantID, typ, code, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("verification code: consume: %w", err)
	}
	if consumed {
		return row, nil
	}
	if _, err := s.classify(row); err != nil {
		return nil, err
	}
	// The repository found a spendable row yet did not consume it; a
	// concurrent redeemer won the transition.
	return nil, autherr.ErrVerificationCodeAlreadyUsed
}

// classify maps a fetched row to the ceremony-facing outcome. Used and
// expired are both terminal, and used wins: a code consumed before its expiry
// stays AlreadyUsed even after the expiry instant passes.
func (s *Store) classify(row *domain.Code) (*domain.Code, error) {
	if row == nil {
		return nil, autherr.ErrVerificationCodeNotFound
	}
	if row.UsedAt == nil && row.Expired(s.now().UTC()) {
		return nil, autherr.ErrVerificationCodeExpired
	}
	if row.UsedAt != nil {
		return nil, autherr.ErrVerificationCodeAlreadyUsed
	}
	return row, nil
}
