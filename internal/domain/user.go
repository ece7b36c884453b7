package domain

import (
	"time"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a QuickSnack account. Accounts are created only when a signup OTP
// is verified, never on the initial signup request, so every stored user has
// passed email verification at least once.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether this account can use password login. OTP-only
// accounts have no password hash.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
