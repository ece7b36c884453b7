package mock

import (
	"context"
	"log/slog"
	"time"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/sender"
)

// MockSender logs outbound messages and always succeeds. It simulates a 10ms
// delay to mimic real sending latency. Used in local development when no
// Kafka broker is available.
type MockSender struct {
	logger *slog.Logger
}

// NewMockSender creates a new mock sender.
func NewMockSender(logger *slog.Logger) *MockSender {
	return &MockSender{logger: logger}
}

// Name returns the name of this sender.
func (s *MockSender) Name() string {
	return "mock-email"
}

// Send logs the message envelope and simulates a sending delay. The body is
// never logged because it contains the one-time passcode.
func (s *MockSender) Send(ctx context.Context, msg *sender.Message) error {
	time.Sleep(10 * time.Millisecond)

	s.logger.InfoContext(ctx, "mock sender: email sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)

	return nil
}
