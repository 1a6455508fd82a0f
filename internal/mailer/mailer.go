package mailer

import (
	"context"
	"log/slog"
)

// Message is one outbound email, already rendered.
type Message struct {
	ToName  string
	ToEmail string

	Subject     string
	TextContent string
	HTMLContent string

	Attachments []Attachment
}

type Attachment struct {
	Filename    string
	ContentType string
	// Content is base64-encoded.
	Content string
}

// Mailer delivers a single rendered message. Implementations must be safe
// for concurrent use; the queue worker sends from its own goroutine.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them. Used in
// development and tests.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info("email (not delivered, log mailer)",
		"to", msg.ToEmail,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)
	return nil
}
