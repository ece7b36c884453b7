package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/domain"
	apperrors "github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/errors"
)

type otpFixture struct {
	svc     *OTPService
	tickets *memTicketRepo
	sender  *fakeSender
	limiter *fakeLimiter
}

func newOTPFixture(t *testing.T) *otpFixture {
	t.Helper()
	f := &otpFixture{
		tickets: newMemTicketRepo(),
		sender:  &fakeSender{},
		limiter: &fakeLimiter{},
	}
	cfg := DefaultOTPConfig()
	cfg.BcryptCost = testBcryptCost
	f.svc = NewOTPService(f.tickets, f.sender, f.limiter, cfg, newTestLogger())
	return f
}

func (f *otpFixture) issue(t *testing.T, email string, purpose domain.Purpose) string {
	t.Helper()
	result, err := f.svc.Issue(context.Background(), email, purpose)
	require.NoError(t, err)
	require.True(t, result.Delivered)
	code := f.sender.lastCode()
	require.Len(t, code, domain.CodeLength)
	return code
}

// wrongCode returns a 6-digit code that differs from the given one.
func wrongCode(code string) string {
	if code == "999999" {
		return "100000"
	}
	return "999999"
}

func TestOTPService_Issue_InvalidPurpose(t *testing.T) {
	f := newOTPFixture(t)

	_, err := f.svc.Issue(context.Background(), "a@example.com", domain.Purpose("coupon"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Zero(t, f.tickets.count())
}

func TestOTPService_Issue_NormalizesEmail(t *testing.T) {
	f := newOTPFixture(t)

	code := f.issue(t, "  Alice@Example.COM ", domain.PurposeSignup)

	err := f.svc.Verify(context.Background(), "alice@example.com", domain.PurposeSignup, code)
	assert.NoError(t, err)
}

func TestOTPService_Issue_ReplacesPreviousTicket(t *testing.T) {
	f := newOTPFixture(t)

	oldCode := f.issue(t, "a@example.com", domain.PurposeLogin)
	newCode := f.issue(t, "a@example.com", domain.PurposeLogin)
	require.Equal(t, 1, f.tickets.count())

	if oldCode != newCode {
		err := f.svc.Verify(context.Background(), "a@example.com", domain.PurposeLogin, oldCode)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrOtpInvalidCode))
	}
	err := f.svc.Verify(context.Background(), "a@example.com", domain.PurposeLogin, newCode)
	assert.NoError(t, err)
}

func TestOTPService_Issue_RateLimited(t *testing.T) {
	f := newOTPFixture(t)
	f.limiter.deny = true

	_, err := f.svc.Issue(context.Background(), "a@example.com", domain.PurposeSignup)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "RATE_LIMITED", appErr.Code)
	assert.Zero(t, f.tickets.count())
}

func TestOTPService_Issue_DeliveryFailureKeepsTicket(t *testing.T) {
	f := newOTPFixture(t)
	f.sender.fail = true

	result, err := f.svc.Issue(context.Background(), "a@example.com", domain.PurposeSignup)
	require.NoError(t, err)
	assert.False(t, result.Delivered)
	assert.Equal(t, 1, f.tickets.count(), "ticket must persist when delivery fails")
}

func TestOTPService_Verify_NotFound(t *testing.T) {
	f := newOTPFixture(t)

	err := f.svc.Verify(context.Background(), "nobody@example.com", domain.PurposeLogin, "123456")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOtpNotFound))
}

func TestOTPService_Verify_WrongPurposeDoesNotMatch(t *testing.T) {
	f := newOTPFixture(t)

	code := f.issue(t, "a@example.com", domain.PurposeSignup)

	err := f.svc.Verify(context.Background(), "a@example.com", domain.PurposeLogin, code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOtpNotFound))
}

func TestOTPService_Verify_SingleUse(t *testing.T) {
	f := newOTPFixture(t)

	for _, purpose := range []domain.Purpose{domain.PurposeSignup, domain.PurposeLogin, domain.PurposeOrderVerification} {
		code := f.issue(t, "a@example.com", purpose)

		err := f.svc.Verify(context.Background(), "a@example.com", purpose, code)
		require.NoError(t, err)

		// Consumed: the same code now reports NotFound.
		err = f.svc.Verify(context.Background(), "a@example.com", purpose, code)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrOtpNotFound), "purpose %s", purpose)
	}
}

func TestOTPService_Verify_ResetPasswordRetainsTicket(t *testing.T) {
	f := newOTPFixture(t)

	code := f.issue(t, "a@example.com", domain.PurposeResetPassword)

	err := f.svc.Verify(context.Background(), "a@example.com", domain.PurposeResetPassword, code)
	require.NoError(t, err)
	assert.Equal(t, 1, f.tickets.count(), "reset-password ticket is retained after verification")

	// Same code verifies again until consumed.
	err = f.svc.Verify(context.Background(), "a@example.com", domain.PurposeResetPassword, code)
	require.NoError(t, err)

	err = f.svc.Consume(context.Background(), "a@example.com", domain.PurposeResetPassword)
	require.NoError(t, err)

	err = f.svc.Verify(context.Background(), "a@example.com", domain.PurposeResetPassword, code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOtpNotFound))
}

func TestOTPService_Verify_Expired(t *testing.T) {
	f := newOTPFixture(t)

	code := f.issue(t, "a@example.com", domain.PurposeLogin)
	f.tickets.expire("a@example.com", domain.PurposeLogin)

	err := f.svc.Verify(context.Background(), "a@example.com", domain.PurposeLogin, code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOtpExpired))
	assert.Zero(t, f.tickets.count(), "expired ticket is deleted on sight")

	err = f.svc.Verify(context.Background(), "a@example.com", domain.PurposeLogin, code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOtpNotFound))
}

func TestOTPService_Verify_WrongCodeConsumesAttempt(t *testing.T) {
	f := newOTPFixture(t)

	code := f.issue(t, "a@example.com", domain.PurposeLogin)

	err := f.svc.Verify(context.Background(), "a@example.com", domain.PurposeLogin, wrongCode(code))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOtpInvalidCode))
	assert.Equal(t, 1, f.tickets.count(), "ticket survives a wrong guess")

	err = f.svc.Verify(context.Background(), "a@example.com", domain.PurposeLogin, code)
	assert.NoError(t, err, "correct code still works while attempts remain")
}

func TestOTPService_Verify_ThirdWrongGuessExhaustsBudget(t *testing.T) {
	f := newOTPFixture(t)

	code := f.issue(t, "a@example.com", domain.PurposeLogin)
	bad := wrongCode(code)

	for i := 0; i < domain.MaxAttempts-1; i++ {
		err := f.svc.Verify(context.Background(), "a@example.com", domain.PurposeLogin, bad)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrOtpInvalidCode))
	}

	// The guess that spends the last attempt reports exhaustion.
	err := f.svc.Verify(context.Background(), "a@example.com", domain.PurposeLogin, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOtpExhausted))

	// Even the correct code no longer helps.
	err = f.svc.Verify(context.Background(), "a@example.com", domain.PurposeLogin, code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOtpExhausted))

	// The exhausted ticket was removed, so the next attempt is NotFound.
	err = f.svc.Verify(context.Background(), "a@example.com", domain.PurposeLogin, code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOtpNotFound))
}

func TestOTPService_Verify_ExpiryBeatsCorrectCode(t *testing.T) {
	f := newOTPFixture(t)

	code := f.issue(t, "a@example.com", domain.PurposeSignup)
	f.tickets.expire("a@example.com", domain.PurposeSignup)

	// Correct code, but the expiry check comes first.
	err := f.svc.Verify(context.Background(), "a@example.com", domain.PurposeSignup, code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOtpExpired))
}

func TestOTPService_Consume_AbsentTicketIsNoop(t *testing.T) {
	f := newOTPFixture(t)

	err := f.svc.Consume(context.Background(), "nobody@example.com", domain.PurposeResetPassword)
	assert.NoError(t, err)
}

func TestGenerateCode_SixDigitRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.GreaterOrEqual(t, code, "100000")
		assert.LessOrEqual(t, code, "999999")
	}
}

func TestSweeper_RemovesOnlyExpiredTickets(t *testing.T) {
	f := newOTPFixture(t)

	f.issue(t, "a@example.com", domain.PurposeLogin)
	f.issue(t, "b@example.com", domain.PurposeSignup)
	f.tickets.expire("a@example.com", domain.PurposeLogin)

	sw := NewSweeper(f.tickets, time.Minute, newTestLogger())
	sw.sweep(context.Background())

	assert.Equal(t, 1, f.tickets.count())
	_, err := f.tickets.Get(context.Background(), "b@example.com", domain.PurposeSignup)
	assert.NoError(t, err)
}
