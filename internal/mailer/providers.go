package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
)

// Provider types.
const (
	ProviderSendGrid = "sendgrid"
	ProviderPostmark = "postmark"
	ProviderMailgun  = "mailgun"
	ProviderResend   = "resend"
	ProviderSMTP     = "smtp"
)

// Provider is one configured email provider.
type Provider struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Config     json.RawMessage `json:"config"`
	FromEmail  string          `json:"fromEmail"`
	FromName   *string         `json:"fromName"`
	IsDefault  bool            `json:"isDefault"`
	IsFallback bool            `json:"isFallback"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ProviderInput is the admin-supplied provider shape. Config carries the
// transport credentials (api key, smtp host, etc) as opaque JSON.
type ProviderInput struct {
	Type       string          `json:"type"`
	Config     json.RawMessage `json:"config"`
	FromEmail  string          `json:"fromEmail"`
	FromName   *string         `json:"fromName"`
	IsDefault  bool            `json:"isDefault"`
	IsFallback bool            `json:"isFallback"`
	Enabled    bool            `json:"enabled"`
}

func (in ProviderInput) Validate() error {
	switch in.Type {
	case ProviderSendGrid, ProviderPostmark, ProviderMailgun, ProviderResend, ProviderSMTP:
	default:
		return apperr.Validation("type must be sendgrid, postmark, mailgun, resend or smtp")
	}
	if in.FromEmail == "" {
		return apperr.Validation("fromEmail is required")
	}
	return nil
}

// ProviderStore persists provider configurations.
type ProviderStore struct {
	db storage.DBTX
}

func NewProviderStore(db storage.DBTX) *ProviderStore {
	return &ProviderStore{db: db}
}

const providerCols = `id, type, config, from_email, from_name, is_default, is_fallback, enabled, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	p := &Provider{}
	err := row.Scan(&p.ID, &p.Type, &p.Config, &p.FromEmail, &p.FromName,
		&p.IsDefault, &p.IsFallback, &p.Enabled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Insert creates a provider. Marking it default clears the flag elsewhere.
func (s *ProviderStore) Insert(ctx context.Context, in ProviderInput) (*Provider, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.IsDefault {
		if _, err := s.db.Exec(ctx, `UPDATE email_providers SET is_default = FALSE WHERE is_default = TRUE`); err != nil {
			return nil, fmt.Errorf("provider_default_clear_failed: %w", err)
		}
	}

	cfg := in.Config
	if len(cfg) == 0 {
		cfg = json.RawMessage(`{}`)
	}
	query := `
		INSERT INTO email_providers (type, config, from_email, from_name, is_default, is_fallback, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + providerCols

	p, err := scanProvider(s.db.QueryRow(ctx, query,
		in.Type, cfg, in.FromEmail, in.FromName, in.IsDefault, in.IsFallback, in.Enabled))
	if err != nil {
		return nil, fmt.Errorf("provider_insert_failed: %w", err)
	}
	return p, nil
}

// Update replaces a provider's configuration.
func (s *ProviderStore) Update(ctx context.Context, id uuid.UUID, in ProviderInput) (*Provider, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.IsDefault {
		if _, err := s.db.Exec(ctx, `UPDATE email_providers SET is_default = FALSE WHERE is_default = TRUE AND id <> $1`, id); err != nil {
			return nil, fmt.Errorf("provider_default_clear_failed: %w", err)
		}
	}

	cfg := in.Config
	if len(cfg) == 0 {
		cfg = json.RawMessage(`{}`)
	}
	query := `
		UPDATE email_providers
		SET type = $2, config = $3, from_email = $4, from_name = $5,
			is_default = $6, is_fallback = $7, enabled = $8
		WHERE id = $1
		RETURNING ` + providerCols

	p, err := scanProvider(s.db.QueryRow(ctx, query,
		id, in.Type, cfg, in.FromEmail, in.FromName, in.IsDefault, in.IsFallback, in.Enabled))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Email provider")
		}
		return nil, fmt.Errorf("provider_update_failed: %w", err)
	}
	return p, nil
}

// List returns all providers.
func (s *ProviderStore) List(ctx context.Context) ([]*Provider, error) {
	rows, err := s.db.Query(ctx, `SELECT `+providerCols+` FROM email_providers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("provider_list_failed: %w", err)
	}
	defer rows.Close()

	var providers []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("provider_scan_failed: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// Delete removes a provider.
func (s *ProviderStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM email_providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("provider_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Email provider")
	}
	return nil
}

// Active returns the provider to send through: the enabled default first,
// else the enabled fallback, else nil.
func (s *ProviderStore) Active(ctx context.Context) (*Provider, error) {
	const query = `
		SELECT ` + providerCols + ` FROM email_providers
		WHERE enabled = TRUE AND (is_default = TRUE OR is_fallback = TRUE)
		ORDER BY is_default DESC, is_fallback DESC
		LIMIT 1`

	p, err := scanProvider(s.db.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("provider_active_lookup_failed: %w", err)
	}
	return p, nil
}
