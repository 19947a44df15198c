package model

import "time"

// Session binds an opaque token to an admin until ExpiresAt. IPAddress,
// UserAgent and Device are provenance only and play no part in
// authorization.
type Session struct {
	ID        string    `json:"id" db:"id"`
	AdminID   string    `json:"admin_id" db:"admin_id"`
	Token     string    `json:"-" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	Device    string    `json:"device" db:"device"`
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionWithAdmin is a session joined with the account fields needed to
// decide whether it still authenticates.
type SessionWithAdmin struct {
	Session
	AdminEmail       string `db:"admin_email"`
	AdminDisplayName string `db:"admin_display_name"`
	AdminIsActive    bool   `db:"admin_is_active"`
}

// Identity projects the joined admin columns.
func (s *SessionWithAdmin) Identity() Identity {
	return Identity{ID: s.AdminID, Email: s.AdminEmail, DisplayName: s.AdminDisplayName}
}
