// Package audit records who did what within a tenant. Writes are best-effort
// so an audit failure never fails the audited request.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tenantauth/internal/audit/domain"
	auditrepo "tenantauth/internal/audit/repository"
)

// SentinelTenantID is the tenant_id used for events that arrive without a
// resolvable tenant (e.g. a request rejected before tenant lookup).
const SentinelTenantID = "_system"

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, tenantID, userID, action, resource, ip, metadata string)
}

// Logger implements AuditLogger using the audit repository.
type Logger struct {
	repo auditrepo.Repository
	log  zerolog.Logger
}

// NewLogger returns an AuditLogger that persists to repo. repo may be nil;
// LogEvent is then a no-op.
func NewLogger(repo auditrepo.Repository, log zerolog.Logger) *Logger {
	return &Logger{repo: repo, log: log}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not
// returned.
func (l *Logger) LogEvent(ctx context.Context, tenantID, userID, action, resource, ip, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	if ip == "" {
		ip = "unknown"
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn().Err(err).Str("action", action).Str("resource", resource).
			Msg("audit write failed")
	}
}
