package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/domain"
	apperrors "github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/errors"
)

// TicketRepository implements repository.TicketRepository on PostgreSQL.
type TicketRepository struct {
	db DB
}

// NewTicketRepository creates a PostgreSQL-backed ticket repository.
func NewTicketRepository(db DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Replace removes any existing ticket for the (email, purpose) pair and
// inserts the given one, inside a single transaction. A re-request therefore
// invalidates the previous code and resets the attempt counter.
func (r *TicketRepository) Replace(ctx context.Context, t *domain.Ticket) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace ticket: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`DELETE FROM otp_tickets WHERE email = $1 AND purpose = $2`,
		t.Email, t.Purpose,
	)
	if err != nil {
		return fmt.Errorf("delete previous ticket: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO otp_tickets (id, email, purpose, code_hash, attempts, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Email, t.Purpose, t.CodeHash, t.Attempts, t.ExpiresAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace ticket: %w", err)
	}

	return nil
}

// Get retrieves the ticket for an (email, purpose) pair.
func (r *TicketRepository) Get(ctx context.Context, email string, purpose domain.Purpose) (*domain.Ticket, error) {
	query := `
		SELECT id, email, purpose, code_hash, attempts, expires_at, created_at
		FROM otp_tickets
		WHERE email = $1 AND purpose = $2`

	var t domain.Ticket

	err := r.db.QueryRow(ctx, query, email, purpose).Scan(
		&t.ID,
		&t.Email,
		&t.Purpose,
		&t.CodeHash,
		&t.Attempts,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan ticket: %w", err)
	}

	return &t, nil
}

// IncrementAttempts bumps the attempt counter only while it is below max, so
// two concurrent wrong guesses cannot push it past the budget. Returns
// ErrNotFound when the ticket is gone or the counter is already at max.
func (r *TicketRepository) IncrementAttempts(ctx context.Context, id string, max int) (int, error) {
	query := `
		UPDATE otp_tickets
		SET attempts = attempts + 1
		WHERE id = $1 AND attempts < $2
		RETURNING attempts`

	var attempts int
	if err := r.db.QueryRow(ctx, query, id, max).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("increment ticket attempts: %w", err)
	}

	return attempts, nil
}

// Delete removes a ticket by ID. Deleting an absent ticket is not an error,
// so consume-after-success races resolve quietly.
func (r *TicketRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM otp_tickets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return nil
}

// DeleteExpired removes tickets whose expiry is at or before the given time.
func (r *TicketRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM otp_tickets WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired tickets: %w", err)
	}
	return ct.RowsAffected(), nil
}
