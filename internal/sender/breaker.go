package sender

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds circuit breaker settings for a delivery channel.
type BreakerConfig struct {
	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once this share of requests fail.
	FailureRatio float64

	// MinRequests is the minimum sample size before the ratio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig returns breaker defaults for a delivery channel.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// BreakerSender wraps a Sender with a circuit breaker so a failing delivery
// channel sheds load quickly instead of tying up request handlers.
type BreakerSender struct {
	inner   Sender
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerSender wraps the given sender with a circuit breaker.
func NewBreakerSender(inner Sender, cfg BreakerConfig, logger *slog.Logger) *BreakerSender {
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("delivery circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &BreakerSender{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Name returns the wrapped sender's name.
func (s *BreakerSender) Name() string {
	return s.inner.Name()
}

// Send delivers through the breaker. When the breaker is open it fails fast
// with gobreaker.ErrOpenState without touching the channel.
func (s *BreakerSender) Send(ctx context.Context, msg *Message) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.inner.Send(ctx, msg)
	})
	return err
}
