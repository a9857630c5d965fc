package domain

import "time"

// AuditLog represents one recorded auth action within a tenant.
type AuditLog struct {
	ID        string
	TenantID  string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
