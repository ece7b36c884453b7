package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/domain"
	pkgkafka "github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/kafka"
)

// Kafka topic constants for account domain events.
const (
	TopicUserRegistered      = "quicksnack.user.registered"
	TopicUserUpdated         = "quicksnack.user.updated"
	TopicUserPasswordChanged = "quicksnack.user.password_changed"
	TopicUserPasswordReset   = "quicksnack.user.password_reset"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from this service.
const SourceAuthService = "quicksnack-auth"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// UserUpdatedData is the payload for a user.updated event.
type UserUpdatedData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

// UserPasswordChangedData is the payload for password_changed and
// password_reset events. It identifies the account only; credentials never
// appear on the bus.
type UserPasswordChangedData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Producer publishes account domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	data := UserUpdatedData{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Phone: user.Phone,
		Role:  user.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserUpdated, user.ID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserUpdated, event); err != nil {
		return fmt.Errorf("publish user.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.updated event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishPasswordChanged publishes a user.password_changed event.
func (p *Producer) PublishPasswordChanged(ctx context.Context, userID, email string) error {
	return p.publishPasswordEvent(ctx, TopicUserPasswordChanged, userID, email)
}

// PublishPasswordReset publishes a user.password_reset event.
func (p *Producer) PublishPasswordReset(ctx context.Context, userID, email string) error {
	return p.publishPasswordEvent(ctx, TopicUserPasswordReset, userID, email)
}

func (p *Producer) publishPasswordEvent(ctx context.Context, topic, userID, email string) error {
	data := UserPasswordChangedData{
		UserID: userID,
		Email:  email,
	}

	event, err := pkgkafka.NewEvent(topic, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published password event",
		slog.String("topic", topic),
		slog.String("user_id", userID),
	)

	return nil
}
