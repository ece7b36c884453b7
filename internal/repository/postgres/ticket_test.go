package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/domain"
	apperrors "github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/errors"
)

func newTicketTestFixture(t *testing.T) (*TicketRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewTicketRepository(mock)
	return repo, mock
}

func sampleTicket() *domain.Ticket {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Ticket{
		ID:        "9b4f1c2a-0000-4000-8000-000000000002",
		Email:     "alice@example.com",
		Purpose:   domain.PurposeSignup,
		CodeHash:  "$2a$10$hash",
		Attempts:  0,
		ExpiresAt: now.Add(10 * time.Minute),
		CreatedAt: now,
	}
}

func ticketColumns() []string {
	return []string{"id", "email", "purpose", "code_hash", "attempts", "expires_at", "created_at"}
}

func ticketRow(tk *domain.Ticket) *pgxmock.Rows {
	return pgxmock.NewRows(ticketColumns()).AddRow(
		tk.ID, tk.Email, tk.Purpose, tk.CodeHash, tk.Attempts, tk.ExpiresAt, tk.CreatedAt,
	)
}

// ---------------------------------------------------------------------------
// Replace
// ---------------------------------------------------------------------------

func TestTicketRepository_Replace_Success(t *testing.T) {
	repo, mock := newTicketTestFixture(t)
	defer mock.Close()

	tk := sampleTicket()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM otp_tickets WHERE email =").
		WithArgs(tk.Email, tk.Purpose).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO otp_tickets").
		WithArgs(tk.ID, tk.Email, tk.Purpose, tk.CodeHash, tk.Attempts, tk.ExpiresAt, tk.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), tk)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_Replace_NoPriorTicket(t *testing.T) {
	repo, mock := newTicketTestFixture(t)
	defer mock.Close()

	tk := sampleTicket()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM otp_tickets WHERE email =").
		WithArgs(tk.Email, tk.Purpose).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO otp_tickets").
		WithArgs(tk.ID, tk.Email, tk.Purpose, tk.CodeHash, tk.Attempts, tk.ExpiresAt, tk.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), tk)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_Replace_InsertFailure_RollsBack(t *testing.T) {
	repo, mock := newTicketTestFixture(t)
	defer mock.Close()

	tk := sampleTicket()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM otp_tickets WHERE email =").
		WithArgs(tk.Email, tk.Purpose).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO otp_tickets").
		WithArgs(tk.ID, tk.Email, tk.Purpose, tk.CodeHash, tk.Attempts, tk.ExpiresAt, tk.CreatedAt).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), tk)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_Replace_BeginFailure(t *testing.T) {
	repo, mock := newTicketTestFixture(t)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := repo.Replace(context.Background(), sampleTicket())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestTicketRepository_Get_Success(t *testing.T) {
	repo, mock := newTicketTestFixture(t)
	defer mock.Close()

	tk := sampleTicket()

	mock.ExpectQuery("SELECT .+ FROM otp_tickets WHERE email =").
		WithArgs(tk.Email, tk.Purpose).
		WillReturnRows(ticketRow(tk))

	got, err := repo.Get(context.Background(), tk.Email, tk.Purpose)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)
	assert.Equal(t, tk.CodeHash, got.CodeHash)
	assert.Equal(t, tk.Purpose, got.Purpose)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_Get_NotFound(t *testing.T) {
	repo, mock := newTicketTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM otp_tickets WHERE email =").
		WithArgs("nobody@example.com", domain.PurposeLogin).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.Get(context.Background(), "nobody@example.com", domain.PurposeLogin)
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// IncrementAttempts
// ---------------------------------------------------------------------------

func TestTicketRepository_IncrementAttempts_Success(t *testing.T) {
	repo, mock := newTicketTestFixture(t)
	defer mock.Close()

	tk := sampleTicket()

	mock.ExpectQuery("UPDATE otp_tickets SET attempts = attempts \\+ 1").
		WithArgs(tk.ID, domain.MaxAttempts).
		WillReturnRows(pgxmock.NewRows([]string{"attempts"}).AddRow(1))

	attempts, err := repo.IncrementAttempts(context.Background(), tk.ID, domain.MaxAttempts)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_IncrementAttempts_AtBudget(t *testing.T) {
	repo, mock := newTicketTestFixture(t)
	defer mock.Close()

	tk := sampleTicket()

	// attempts already at max, so the conditional update matches no row
	mock.ExpectQuery("UPDATE otp_tickets SET attempts = attempts \\+ 1").
		WithArgs(tk.ID, domain.MaxAttempts).
		WillReturnError(pgx.ErrNoRows)

	attempts, err := repo.IncrementAttempts(context.Background(), tk.ID, domain.MaxAttempts)
	require.Error(t, err)
	assert.Zero(t, attempts)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Delete / DeleteExpired
// ---------------------------------------------------------------------------

func TestTicketRepository_Delete_Success(t *testing.T) {
	repo, mock := newTicketTestFixture(t)
	defer mock.Close()

	tk := sampleTicket()

	mock.ExpectExec("DELETE FROM otp_tickets WHERE id =").
		WithArgs(tk.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), tk.ID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_Delete_AbsentIsNotAnError(t *testing.T) {
	repo, mock := newTicketTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM otp_tickets WHERE id =").
		WithArgs("already-gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "already-gone")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_DeleteExpired(t *testing.T) {
	repo, mock := newTicketTestFixture(t)
	defer mock.Close()

	cutoff := time.Now().UTC()

	mock.ExpectExec("DELETE FROM otp_tickets WHERE expires_at <=").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	removed, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
