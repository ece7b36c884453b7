package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/domain"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/service"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/validator"
)

// OTPHandler handles HTTP requests for passcode issuance and verification.
type OTPHandler struct {
	service *service.OTPService
	logger  *slog.Logger
}

// NewOTPHandler creates a new OTP HTTP handler.
func NewOTPHandler(svc *service.OTPService, logger *slog.Logger) *OTPHandler {
	return &OTPHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RequestOTPRequest is the JSON request body for passcode issuance.
type RequestOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=signup login orderVerification reset-password"`
}

// VerifyOTPRequest is the JSON request body for passcode verification.
type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=signup login orderVerification reset-password"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
}

// --- Response types ---

// RequestOTPResponse reports issuance outcome. Delivered is false when the
// passcode was stored but could not be handed to the delivery channel.
type RequestOTPResponse struct {
	Delivered bool      `json:"delivered"`
	ExpiresAt time.Time `json:"expires_at"`
}

// --- Handlers ---

// RequestOTP handles POST /api/v1/auth/otp/request
func (h *OTPHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RequestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	result, err := h.service.Issue(r.Context(), req.Email, domain.Purpose(req.Purpose))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: RequestOTPResponse{
			Delivered: result.Delivered,
			ExpiresAt: result.ExpiresAt,
		},
	})
}

// VerifyOTP handles POST /api/v1/auth/otp/verify
func (h *OTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.service.Verify(r.Context(), req.Email, domain.Purpose(req.Purpose), req.Code); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]bool{"verified": true},
	})
}
