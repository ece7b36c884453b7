package domain

import (
	"time"
)

// Purpose scopes a ticket to exactly one workflow. The wire strings are part
// of the public API contract and match the storefront clients.
type Purpose string

const (
	PurposeSignup            Purpose = "signup"
	PurposeLogin             Purpose = "login"
	PurposeOrderVerification Purpose = "orderVerification"
	PurposeResetPassword     Purpose = "reset-password"
)

// MaxAttempts is the number of failed comparisons that permanently
// invalidates a ticket.
const MaxAttempts = 3

// DefaultTicketTTL is how long a ticket stays valid after issuance.
const DefaultTicketTTL = 10 * time.Minute

// CodeLength is the number of decimal digits in an issued code.
const CodeLength = 6

// ValidPurpose reports whether p is one of the four enumerated purposes.
func ValidPurpose(p Purpose) bool {
	switch p {
	case PurposeSignup, PurposeLogin, PurposeOrderVerification, PurposeResetPassword:
		return true
	}
	return false
}

// Ticket is a stored one-time-passcode record bound to an (email, purpose)
// pair. The code itself is never stored, only its bcrypt hash. At most one
// ticket exists per pair; issuing a new one replaces the previous ticket.
type Ticket struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Purpose   Purpose   `json:"purpose"`
	CodeHash  string    `json:"-"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the ticket is invalid due to wall-clock expiry.
// A ticket is expired at exactly ExpiresAt, not only after it.
func (t *Ticket) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Exhausted reports whether the attempt budget has been used up.
func (t *Ticket) Exhausted() bool {
	return t.Attempts >= MaxAttempts
}
