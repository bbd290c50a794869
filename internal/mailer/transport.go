package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
)

// SendError wraps every transport failure so callers can report it without
// depending on a specific provider's error shape.
type SendError struct {
	Provider string
	Cause    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("email send failed via %s: %v", e.Provider, e.Cause)
}

func (e *SendError) Unwrap() error { return e.Cause }

// NewTransport builds the Mailer for a provider row. The config JSON holds
// the transport credentials.
func NewTransport(p *Provider, client *http.Client) (Mailer, error) {
	switch p.Type {
	case ProviderSendGrid:
		var cfg struct {
			APIKey string `json:"apiKey"`
		}
		if err := json.Unmarshal(p.Config, &cfg); err != nil || cfg.APIKey == "" {
			return nil, fmt.Errorf("sendgrid config requires apiKey")
		}
		return &sendGridMailer{apiKey: cfg.APIKey, client: client}, nil
	case ProviderPostmark:
		var cfg struct {
			ServerToken string `json:"serverToken"`
		}
		if err := json.Unmarshal(p.Config, &cfg); err != nil || cfg.ServerToken == "" {
			return nil, fmt.Errorf("postmark config requires serverToken")
		}
		return &postmarkMailer{token: cfg.ServerToken, client: client}, nil
	case ProviderMailgun:
		var cfg struct {
			APIKey string `json:"apiKey"`
			Domain string `json:"domain"`
		}
		if err := json.Unmarshal(p.Config, &cfg); err != nil || cfg.APIKey == "" || cfg.Domain == "" {
			return nil, fmt.Errorf("mailgun config requires apiKey and domain")
		}
		return &mailgunMailer{apiKey: cfg.APIKey, domain: cfg.Domain, client: client}, nil
	case ProviderResend:
		var cfg struct {
			APIKey string `json:"apiKey"`
		}
		if err := json.Unmarshal(p.Config, &cfg); err != nil || cfg.APIKey == "" {
			return nil, fmt.Errorf("resend config requires apiKey")
		}
		return &resendMailer{apiKey: cfg.APIKey, client: client}, nil
	case ProviderSMTP:
		var cfg smtpConfig
		if err := json.Unmarshal(p.Config, &cfg); err != nil || cfg.Host == "" || cfg.Port == 0 {
			return nil, fmt.Errorf("smtp config requires host and port")
		}
		return &smtpMailer{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", p.Type)
	}
}

func postJSON(ctx context.Context, client *http.Client, provider, endpoint string, headers map[string]string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &SendError{Provider: provider, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &SendError{Provider: provider, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &SendError{Provider: provider, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &SendError{Provider: provider, Cause: fmt.Errorf("status %d: %s", resp.StatusCode, snippet)}
	}
	return nil
}

type sendGridMailer struct {
	apiKey string
	client *http.Client
}

func (m *sendGridMailer) Send(ctx context.Context, msg Message) error {
	content := []map[string]string{}
	if msg.Text != "" {
		content = append(content, map[string]string{"type": "text/plain", "value": msg.Text})
	}
	content = append(content, map[string]string{"type": "text/html", "value": msg.HTML})

	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": msg.To}}},
		},
		"from":    map[string]string{"email": msg.From, "name": msg.FromName},
		"subject": msg.Subject,
		"content": content,
	}
	return postJSON(ctx, m.client, ProviderSendGrid, "https://api.sendgrid.com/v3/mail/send",
		map[string]string{"Authorization": "Bearer " + m.apiKey}, payload)
}

type postmarkMailer struct {
	token  string
	client *http.Client
}

func (m *postmarkMailer) Send(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"From":     formatFrom(msg),
		"To":       msg.To,
		"Subject":  msg.Subject,
		"HtmlBody": msg.HTML,
	}
	if msg.Text != "" {
		payload["TextBody"] = msg.Text
	}
	return postJSON(ctx, m.client, ProviderPostmark, "https://api.postmarkapp.com/email",
		map[string]string{"X-Postmark-Server-Token": m.token}, payload)
}

type mailgunMailer struct {
	apiKey string
	domain string
	client *http.Client
}

func (m *mailgunMailer) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("from", formatFrom(msg))
	form.Set("to", msg.To)
	form.Set("subject", msg.Subject)
	form.Set("html", msg.HTML)
	if msg.Text != "" {
		form.Set("text", msg.Text)
	}

	endpoint := fmt.Sprintf("https://api.mailgun.net/v3/%s/messages", m.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &SendError{Provider: ProviderMailgun, Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return &SendError{Provider: ProviderMailgun, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &SendError{Provider: ProviderMailgun, Cause: fmt.Errorf("status %d: %s", resp.StatusCode, snippet)}
	}
	return nil
}

type resendMailer struct {
	apiKey string
	client *http.Client
}

func (m *resendMailer) Send(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"from":    formatFrom(msg),
		"to":      []string{msg.To},
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	if msg.Text != "" {
		payload["text"] = msg.Text
	}
	return postJSON(ctx, m.client, ProviderResend, "https://api.resend.com/emails",
		map[string]string{"Authorization": "Bearer " + m.apiKey}, payload)
}

type smtpConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type smtpMailer struct {
	cfg smtpConfig
}

func (m *smtpMailer) Send(_ context.Context, msg Message) error {
	var body bytes.Buffer
	fmt.Fprintf(&body, "From: %s\r\n", formatFrom(msg))
	fmt.Fprintf(&body, "To: %s\r\n", msg.To)
	fmt.Fprintf(&body, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	body.WriteString("\r\n")
	body.WriteString(msg.HTML)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, a, msg.From, []string{msg.To}, body.Bytes()); err != nil {
		return &SendError{Provider: ProviderSMTP, Cause: err}
	}
	return nil
}

func formatFrom(msg Message) string {
	if msg.FromName != "" {
		return fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}
	return msg.From
}
