package domain

import (
	"errors"
	"time"
)

// ChannelType discriminates contact channel kinds. Only email is delivered
// today; the type column keeps room for SMS.
type ChannelType string

const (
	ChannelTypeEmail ChannelType = "email"
)

// ContactChannel is an address a user can be reached at, scoped to one tenant.
// A channel used for auth identifies the user at sign-in, so its value is
// unique per (tenant, type) among auth channels.
type ContactChannel struct {
	ID          string
	TenantID    string
	UserID      string
	Type        ChannelType
	Value       string
	IsVerified  bool
	UsedForAuth bool
	CreatedAt   time.Time
}

// Validate validates the channel for persistence.
func (c *ContactChannel) Validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if c.TenantID == "" || c.UserID == "" {
		return errors.New("tenant id and user id are required")
	}
	if c.Value == "" {
		return errors.New("value is required")
	}
	if c.Type == "" {
		c.Type = ChannelTypeEmail
	}
	return nil
}
