package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/auth"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/service"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/health"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/middleware"
)

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(
	otpService *service.OTPService,
	authService *service.AuthService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("auth"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to our internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.Validate(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}

	otpHandler := NewOTPHandler(otpService, logger)
	authHandler := NewAuthHandler(authService, logger)
	userHandler := NewUserHandler(authService, logger)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public endpoints
		r.Post("/otp/request", otpHandler.RequestOTP)
		r.Post("/otp/verify", otpHandler.VerifyOTP)
		r.Post("/signup/complete", authHandler.CompleteSignup)
		r.Post("/login", authHandler.PasswordLogin)
		r.Post("/login/otp", authHandler.OTPLogin)
		r.Post("/password/reset", authHandler.ResetPassword)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/me", userHandler.GetProfile)
		r.Put("/me", userHandler.UpdateProfile)
	})

	return r
}
