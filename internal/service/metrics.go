package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification result label values.
const (
	resultSuccess         = "success"
	resultNotFound        = "not_found"
	resultExpired         = "expired"
	resultTooManyAttempts = "too_many_attempts"
	resultInvalidCode     = "invalid_code"
)

var (
	otpIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_issued_total",
			Help: "Total number of one-time passcodes issued",
		},
		[]string{"purpose"},
	)

	otpVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "Total number of verification attempts by outcome",
		},
		[]string{"purpose", "result"},
	)

	otpDeliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_delivery_failures_total",
			Help: "Total number of passcode delivery failures (ticket still issued)",
		},
		[]string{"purpose"},
	)

	otpTicketsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "otp_tickets_swept_total",
			Help: "Total number of expired tickets removed by the sweeper",
		},
	)

	otpIssuanceThrottledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_issuance_throttled_total",
			Help: "Total number of issuance requests rejected by the rate limiter",
		},
		[]string{"purpose"},
	)
)
