// Package mailer renders templated emails and dispatches them through the
// configured provider transports.
package mailer

import (
	"context"
	"log/slog"
)

// Message is one outbound email.
type Message struct {
	To       string
	From     string
	FromName string
	Subject  string
	HTML     string
	Text     string
}

// Mailer dispatches a single message. Each provider type has its own
// implementation.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// DevMailer logs messages instead of sending them. Used in development and
// as the terminal fallback when no provider is configured.
type DevMailer struct {
	Log *slog.Logger
}

func (d *DevMailer) Send(_ context.Context, msg Message) error {
	d.Log.Info("dev_mailer_send",
		"to", msg.To,
		"from", msg.From,
		"subject", msg.Subject,
	)
	return nil
}
