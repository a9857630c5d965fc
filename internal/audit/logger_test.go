package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"tenantauth/internal/audit/domain"
)

type memRepo struct {
	entries []*domain.AuditLog
	err     error
}

func (m *memRepo) GetByID(context.Context, string, string) (*domain.AuditLog, error) {
	return nil, nil
}

func (m *memRepo) ListByTenant(context.Context, string, int32, int32) ([]*domain.AuditLog, error) {
	return m.entries, nil
}

func (m *memRepo) Create(_ context.Context, a *domain.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, a)
	return nil
}

func TestLogEvent(t *testing.T) {
	repo := &memRepo{}
	l := NewLogger(repo, zerolog.Nop())

	l.LogEvent(context.Background(), "tenant-1", "user-1", "sign_in", "otp", "1.2.3.4", "")

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Error("entry missing ID or timestamp")
	}
	if e.TenantID != "tenant-1" || e.UserID != "user-1" || e.Action != "sign_in" || e.Resource != "otp" || e.IP != "1.2.3.4" {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestLogEventDefaults(t *testing.T) {
	repo := &memRepo{}
	l := NewLogger(repo, zerolog.Nop())

	l.LogEvent(context.Background(), "", "", "sign_in", "otp", "", "")

	e := repo.entries[0]
	if e.TenantID != SentinelTenantID {
		t.Errorf("TenantID = %q, want sentinel", e.TenantID)
	}
	if e.IP != "unknown" {
		t.Errorf("IP = %q, want unknown", e.IP)
	}
}

func TestLogEventBestEffort(t *testing.T) {
	l := NewLogger(&memRepo{err: errors.New("db down")}, zerolog.Nop())
	// Must not panic or propagate the error.
	l.LogEvent(context.Background(), "tenant-1", "", "sign_in", "otp", "", "")
}

func TestLogEventNilRepo(t *testing.T) {
	l := NewLogger(nil, zerolog.Nop())
	l.LogEvent(context.Background(), "tenant-1", "", "sign_in", "otp", "", "")
}
