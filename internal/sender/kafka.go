package sender

import (
	"context"
	"fmt"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/kafka"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/logger"
)

// TopicEmail is consumed by the notification pipeline, which renders the
// template and hands the message to the mail provider.
const TopicEmail = "quicksnack.notification.email"

// KafkaSender publishes outbound emails to the notification topic. Delivery
// is asynchronous: a successful publish means the message is durably queued,
// not that the provider accepted it.
type KafkaSender struct {
	producer *kafka.Producer
	source   string
}

// NewKafkaSender creates a sender that queues emails on Kafka.
func NewKafkaSender(producer *kafka.Producer, source string) *KafkaSender {
	return &KafkaSender{producer: producer, source: source}
}

// Name returns the name of this sender.
func (s *KafkaSender) Name() string {
	return "kafka-email"
}

// Send publishes the message to the email topic, keyed by recipient.
func (s *KafkaSender) Send(ctx context.Context, msg *Message) error {
	event, err := kafka.NewEvent("notification.email.requested", msg.To, "email", s.source, msg)
	if err != nil {
		return fmt.Errorf("build email event: %w", err)
	}
	event.WithRequestID(logger.RequestIDFromContext(ctx))

	if err := s.producer.Publish(ctx, TopicEmail, event); err != nil {
		return fmt.Errorf("queue email: %w", err)
	}
	return nil
}
