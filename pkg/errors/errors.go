package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors used across the service. Repositories return these so that
// callers can classify failures without depending on storage details.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInternal        = errors.New("internal error")
	ErrOtpNotFound     = errors.New("otp not found")
	ErrOtpExpired      = errors.New("otp expired")
	ErrOtpExhausted    = errors.New("otp attempts exhausted")
	ErrOtpInvalidCode  = errors.New("otp code mismatch")
	ErrDeliveryFailure = errors.New("delivery failed")
)

// AppError is a structured application error carrying a stable machine code,
// a user-facing message, and the HTTP status it maps to.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error for a missing resource.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error for a uniqueness conflict.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error for malformed or rejected input.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Internal creates a 500 error wrapping the underlying cause.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// --- One-time-passcode error kinds ---
//
// These carry the outcome of a verification attempt to the HTTP layer. The
// message for OtpNotFound deliberately does not distinguish "never issued"
// from "already consumed or swept".

// OtpNotFound creates a 400 error for a missing or already-consumed passcode.
func OtpNotFound() *AppError {
	return &AppError{
		Code:    "OTP_NOT_FOUND",
		Message: "OTP not found or expired",
		Status:  http.StatusBadRequest,
		Err:     ErrOtpNotFound,
	}
}

// OtpExpired creates a 400 error for a passcode past its expiry.
func OtpExpired() *AppError {
	return &AppError{
		Code:    "OTP_EXPIRED",
		Message: "OTP has expired, request a new one",
		Status:  http.StatusBadRequest,
		Err:     ErrOtpExpired,
	}
}

// OtpTooManyAttempts creates a 429 error for an exhausted attempt budget.
func OtpTooManyAttempts() *AppError {
	return &AppError{
		Code:    "OTP_TOO_MANY_ATTEMPTS",
		Message: "too many incorrect attempts, request a new OTP",
		Status:  http.StatusTooManyRequests,
		Err:     ErrOtpExhausted,
	}
}

// OtpInvalidCode creates a 400 error for a code mismatch.
func OtpInvalidCode() *AppError {
	return &AppError{
		Code:    "OTP_INVALID_CODE",
		Message: "incorrect OTP code",
		Status:  http.StatusBadRequest,
		Err:     ErrOtpInvalidCode,
	}
}

// RateLimited creates a 429 error for throttled issuance.
func RateLimited(message string) *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     ErrInvalidInput,
	}
}

// HTTPStatus returns the HTTP status code the given error maps to.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrOtpNotFound),
		errors.Is(err, ErrOtpExpired), errors.Is(err, ErrOtpInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, ErrOtpExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
