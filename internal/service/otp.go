package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/domain"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/ratelimit"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/repository"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/sender"
	apperrors "github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/errors"
)

// OTPConfig holds tunables for passcode issuance and verification.
type OTPConfig struct {
	// TTL is how long an issued passcode stays valid.
	TTL time.Duration

	// MaxAttempts caps incorrect guesses per ticket.
	MaxAttempts int

	// BcryptCost is the cost factor for hashing passcodes.
	BcryptCost int

	// RateLimit is the maximum issuance requests per (email, purpose) pair
	// within RateWindow. 0 disables throttling.
	RateLimit int

	// RateWindow is the fixed throttling window.
	RateWindow time.Duration
}

// DefaultOTPConfig returns the production defaults.
func DefaultOTPConfig() OTPConfig {
	return OTPConfig{
		TTL:         domain.DefaultTicketTTL,
		MaxAttempts: domain.MaxAttempts,
		BcryptCost:  bcrypt.DefaultCost,
		RateLimit:   5,
		RateWindow:  time.Hour,
	}
}

// IssueResult reports the outcome of an issuance request.
type IssueResult struct {
	// Delivered is false when the ticket was stored but the delivery channel
	// rejected the message. The caller may verify with a code from an earlier
	// delivery, or re-request.
	Delivered bool

	// ExpiresAt is when the issued passcode stops being valid.
	ExpiresAt time.Time
}

// OTPService issues and verifies one-time passcodes.
type OTPService struct {
	tickets repository.TicketRepository
	sender  sender.Sender
	limiter ratelimit.Limiter
	cfg     OTPConfig
	logger  *slog.Logger
}

// NewOTPService creates an OTP service.
func NewOTPService(
	tickets repository.TicketRepository,
	snd sender.Sender,
	limiter ratelimit.Limiter,
	cfg OTPConfig,
	logger *slog.Logger,
) *OTPService {
	return &OTPService{
		tickets: tickets,
		sender:  snd,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

// Issue generates a fresh passcode for the (email, purpose) pair, replacing
// any previous ticket, and hands the code to the delivery channel. The ticket
// is kept even when delivery fails so that a code from an earlier delivery
// attempt still works.
func (s *OTPService) Issue(ctx context.Context, email string, purpose domain.Purpose) (*IssueResult, error) {
	email = NormalizeEmail(email)
	if !domain.ValidPurpose(purpose) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid purpose %q", purpose))
	}

	key := fmt.Sprintf("otp:issue:%s:%s", purpose, email)
	allowed, err := s.limiter.Allow(ctx, key, s.cfg.RateLimit, s.cfg.RateWindow)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		otpIssuanceThrottledTotal.WithLabelValues(string(purpose)).Inc()
		return nil, apperrors.RateLimited("too many OTP requests, try again later")
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	now := time.Now().UTC()
	ticket := &domain.Ticket{
		ID:        uuid.New().String(),
		Email:     email,
		Purpose:   purpose,
		CodeHash:  string(codeHash),
		Attempts:  0,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}

	if err := s.tickets.Replace(ctx, ticket); err != nil {
		return nil, fmt.Errorf("store ticket: %w", err)
	}

	otpIssuedTotal.WithLabelValues(string(purpose)).Inc()

	result := &IssueResult{Delivered: true, ExpiresAt: ticket.ExpiresAt}

	msg := &sender.Message{
		To:      email,
		Subject: subjectFor(purpose),
		Body:    fmt.Sprintf("Your QuickSnack verification code is %s. It expires in %d minutes.", code, int(s.cfg.TTL.Minutes())),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		// The ticket stands: delivery is best-effort and the previous channel
		// attempt may still reach the user.
		result.Delivered = false
		otpDeliveryFailuresTotal.WithLabelValues(string(purpose)).Inc()
		s.logger.WarnContext(ctx, "otp delivery failed, ticket kept",
			slog.String("email", email),
			slog.String("purpose", string(purpose)),
			slog.String("sender", s.sender.Name()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "otp issued",
		slog.String("email", email),
		slog.String("purpose", string(purpose)),
		slog.Bool("delivered", result.Delivered),
		slog.Time("expires_at", ticket.ExpiresAt),
	)

	return result, nil
}

// Verify checks a submitted code against the ticket for (email, purpose).
//
// The checks run in a fixed order: missing ticket, expiry, attempt budget,
// then the code itself. Expired and exhausted tickets are removed on sight.
// A wrong code bumps the attempt counter but leaves the ticket usable for
// further tries. A correct code consumes the ticket, except for the
// reset-password purpose, which retains it for the password-set step.
func (s *OTPService) Verify(ctx context.Context, email string, purpose domain.Purpose, code string) error {
	email = NormalizeEmail(email)
	if !domain.ValidPurpose(purpose) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid purpose %q", purpose))
	}

	ticket, err := s.tickets.Get(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			otpVerificationsTotal.WithLabelValues(string(purpose), resultNotFound).Inc()
			return apperrors.OtpNotFound()
		}
		return fmt.Errorf("get ticket: %w", err)
	}

	now := time.Now().UTC()
	if ticket.Expired(now) {
		s.discard(ctx, ticket, "expired")
		otpVerificationsTotal.WithLabelValues(string(purpose), resultExpired).Inc()
		return apperrors.OtpExpired()
	}

	if ticket.Exhausted() {
		s.discard(ctx, ticket, "attempts exhausted")
		otpVerificationsTotal.WithLabelValues(string(purpose), resultTooManyAttempts).Inc()
		return apperrors.OtpTooManyAttempts()
	}

	if bcrypt.CompareHashAndPassword([]byte(ticket.CodeHash), []byte(code)) != nil {
		attempts, err := s.tickets.IncrementAttempts(ctx, ticket.ID, s.cfg.MaxAttempts)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				// Lost the race: the ticket was consumed, replaced, or hit the
				// budget between the read and the increment.
				otpVerificationsTotal.WithLabelValues(string(purpose), resultNotFound).Inc()
				return apperrors.OtpNotFound()
			}
			return fmt.Errorf("increment attempts: %w", err)
		}
		if attempts >= s.cfg.MaxAttempts {
			// The guess that spends the last attempt already reports
			// exhaustion. The ticket stays so later attempts, correct code or
			// not, keep hitting the budget check above.
			otpVerificationsTotal.WithLabelValues(string(purpose), resultTooManyAttempts).Inc()
			return apperrors.OtpTooManyAttempts()
		}
		otpVerificationsTotal.WithLabelValues(string(purpose), resultInvalidCode).Inc()
		return apperrors.OtpInvalidCode()
	}

	if purpose != domain.PurposeResetPassword {
		if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
			return fmt.Errorf("consume ticket: %w", err)
		}
	}

	otpVerificationsTotal.WithLabelValues(string(purpose), resultSuccess).Inc()
	s.logger.InfoContext(ctx, "otp verified",
		slog.String("email", email),
		slog.String("purpose", string(purpose)),
	)

	return nil
}

// Consume removes the ticket for (email, purpose). Used to finish the
// two-phase reset-password flow after the new password is set.
func (s *OTPService) Consume(ctx context.Context, email string, purpose domain.Purpose) error {
	email = NormalizeEmail(email)

	ticket, err := s.tickets.Get(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get ticket for consume: %w", err)
	}

	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return fmt.Errorf("consume ticket: %w", err)
	}
	return nil
}

func (s *OTPService) discard(ctx context.Context, ticket *domain.Ticket, reason string) {
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to discard ticket",
			slog.String("ticket_id", ticket.ID),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}

// NormalizeEmail lowercases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateCode draws a uniform 6-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func subjectFor(purpose domain.Purpose) string {
	switch purpose {
	case domain.PurposeSignup:
		return "Confirm your QuickSnack signup"
	case domain.PurposeLogin:
		return "Your QuickSnack login code"
	case domain.PurposeOrderVerification:
		return "Verify your QuickSnack order"
	case domain.PurposeResetPassword:
		return "Reset your QuickSnack password"
	default:
		return "Your QuickSnack verification code"
	}
}
