package mailer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

var errNoProvider = errors.New("no email provider configured")

// Service resolves templates, renders them and dispatches through the
// active provider. It satisfies the auth engine's EmailSender.
type Service struct {
	templates *TemplateStore
	providers *ProviderStore
	client    *http.Client
	fallback  Mailer
	log       *slog.Logger
}

// NewService builds the orchestrator. fallback is used when no provider is
// configured; pass a DevMailer in development.
func NewService(templates *TemplateStore, providers *ProviderStore, client *http.Client, fallback Mailer, log *slog.Logger) *Service {
	return &Service{
		templates: templates,
		providers: providers,
		client:    client,
		fallback:  fallback,
		log:       log,
	}
}

// Send renders the template for (project, emailType) and dispatches it.
func (s *Service) Send(ctx context.Context, projectID, emailType, to string, vars map[string]string) error {
	tpl, err := s.templates.Resolve(ctx, projectID, emailType)
	if err != nil {
		return err
	}

	msg := Message{
		To:      to,
		Subject: Render(tpl.Subject, vars),
		HTML:    Render(tpl.HTMLBody, vars),
	}
	if tpl.TextBody != nil {
		msg.Text = Render(*tpl.TextBody, vars)
	}

	provider, err := s.providers.Active(ctx)
	if err != nil {
		return err
	}
	if provider == nil {
		if s.fallback == nil {
			return &SendError{Provider: "none", Cause: errNoProvider}
		}
		return s.fallback.Send(ctx, msg)
	}

	msg.From = provider.FromEmail
	if provider.FromName != nil {
		msg.FromName = *provider.FromName
	}

	transport, err := NewTransport(provider, s.client)
	if err != nil {
		return &SendError{Provider: provider.Type, Cause: err}
	}

	if err := transport.Send(ctx, msg); err != nil {
		s.log.Error("email_send_failed", "provider", provider.Type, "type", emailType, "error", err)
		return err
	}
	return nil
}
