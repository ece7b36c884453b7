package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/auth"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/domain"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/repository"
	apperrors "github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/errors"
)

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// EventPublisher publishes account domain events. *event.Producer satisfies
// it; tests substitute a mock.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserUpdated(ctx context.Context, user *domain.User) error
	PublishPasswordChanged(ctx context.Context, userID, email string) error
	PublishPasswordReset(ctx context.Context, userID, email string) error
}

// AuthService implements the account workflows built on top of passcode
// verification: signup completion, login, password reset, and profile access.
type AuthService struct {
	users      repository.UserRepository
	otp        *OTPService
	jwtManager *auth.JWTManager
	producer   EventPublisher
	bcryptCost int
	logger     *slog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(
	users repository.UserRepository,
	otp *OTPService,
	jwtManager *auth.JWTManager,
	producer EventPublisher,
	bcryptCost int,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		otp:        otp,
		jwtManager: jwtManager,
		producer:   producer,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// SignupInput holds the parameters for completing a signup. The pending
// profile travels with the request: nothing is stored server-side between
// requesting the signup passcode and completing it.
type SignupInput struct {
	Email    string
	Name     string
	Phone    string
	Password string
	Code     string
}

// UpdateProfileInput holds the parameters for updating a user's profile.
type UpdateProfileInput struct {
	Name  *string
	Phone *string
}

// Session is an issued session token with its subject.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// CompleteSignup verifies the signup passcode, creates the verified account,
// and opens a session. An account already holding the email is a conflict;
// verification consumed the passcode either way, so the caller must request a
// new one to retry.
func (s *AuthService) CompleteSignup(ctx context.Context, input SignupInput) (*Session, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	// Password is optional: accounts without one are OTP-login only.
	if input.Password != "" {
		if err := validatePassword(input.Password); err != nil {
			return nil, err
		}
	}

	if err := s.otp.Verify(ctx, email, domain.PurposeSignup, input.Code); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.AlreadyExists("user", "email", email)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	var passwordHash string
	if input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = string(hashed)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         input.Name,
		Phone:        input.Phone,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	session, err := s.openSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "signup completed",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return session, nil
}

// OTPLogin verifies a login passcode and opens a session for the existing
// account. Verification runs before the account lookup so a wrong code burns
// an attempt regardless of whether the account exists.
func (s *AuthService) OTPLogin(ctx context.Context, email, code string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}

	if err := s.otp.Verify(ctx, email, domain.PurposeLogin, code); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("no account exists for this email")
		}
		return nil, fmt.Errorf("get user for otp login: %w", err)
	}

	session, err := s.openSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in via otp",
		slog.String("user_id", user.ID),
	)

	return session, nil
}

// PasswordLogin authenticates with email and password. Failures are uniform
// so the response does not reveal whether the account exists.
func (s *AuthService) PasswordLogin(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	if !user.HasPassword() {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	session, err := s.openSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)

	return session, nil
}

// ResetPassword finishes the two-phase reset flow: it re-verifies the
// retained reset-password ticket, sets the new password, and only then
// consumes the ticket.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	if err := s.otp.Verify(ctx, email, domain.PurposeResetPassword, code); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.OtpNotFound()
		}
		return fmt.Errorf("get user for password reset: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if err := s.otp.Consume(ctx, email, domain.PurposeResetPassword); err != nil {
		s.logger.ErrorContext(ctx, "failed to consume reset ticket",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishPasswordReset(ctx, user.ID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// ChangePassword allows an authenticated user to change their password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if err := s.producer.PublishPasswordChanged(ctx, user.ID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// GetProfile retrieves a user by their ID.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// UpdateProfile updates a user's profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		user.Name = *input.Name
	}

	if input.Phone != nil {
		user.Phone = *input.Phone
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

func (s *AuthService) openSession(user *domain.User) (*Session, error) {
	token, err := s.jwtManager.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	return &Session{
		User:      user,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(s.jwtManager.Expiry()),
	}, nil
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
