package model

import "time"

// Admin is an administrator account. Passwords are stored as bcrypt hashes
// and the hash never leaves the process through JSON.
type Admin struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // bcrypt hash, never expose
	DisplayName  string     `json:"display_name" db:"display_name"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Identity returns the minimal projection handed to authenticated handlers.
func (a *Admin) Identity() Identity {
	return Identity{ID: a.ID, Email: a.Email, DisplayName: a.DisplayName}
}

// Identity is what a resolved session token is worth: enough to attribute
// an action, nothing that could be used to authenticate again.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
