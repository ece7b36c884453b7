package repository

import (
	"context"
	"time"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/domain"
)

// UserRepository persists QuickSnack accounts.
type UserRepository interface {
	// Create inserts a new user. Returns ErrAlreadyExists on a duplicate email.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by lowercased email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update persists profile and credential changes.
	Update(ctx context.Context, user *domain.User) error
}

// TicketRepository persists one-time-passcode tickets.
type TicketRepository interface {
	// Replace atomically removes any ticket for the (email, purpose) pair and
	// inserts the given one, so at most one ticket exists per pair.
	Replace(ctx context.Context, ticket *domain.Ticket) error

	// Get retrieves the ticket for an (email, purpose) pair.
	Get(ctx context.Context, email string, purpose domain.Purpose) (*domain.Ticket, error)

	// IncrementAttempts bumps the attempt counter with a conditional update
	// (only while attempts < max) and returns the new count. Returns
	// ErrNotFound when the ticket is gone or the counter is already at max.
	IncrementAttempts(ctx context.Context, id string, max int) (int, error)

	// Delete removes a ticket by ID. Deleting an absent ticket is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes tickets whose expiry is at or before the given
	// time, returning how many were removed. This is the storage-reclamation
	// backstop; verification never relies on it.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
