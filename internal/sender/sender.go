package sender

import "context"

// Message is a single outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers messages through a specific channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}
