// Package oauth implements the authorization-code flow against configured
// providers: building authorization URLs, exchanging codes, fetching user
// info and resolving the result to a project user.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/crypto"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
)

// Supported provider names.
const (
	ProviderGoogle    = "google"
	ProviderGitHub    = "github"
	ProviderMicrosoft = "microsoft"
	ProviderApple     = "apple"
	ProviderCustom    = "custom"
)

// Config is one provider configuration for one project. ClientSecret is
// held decrypted in memory and encrypted at rest when a key is configured.
type Config struct {
	ID               uuid.UUID `json:"id"`
	ProjectID        string    `json:"projectId"`
	ProviderName     string    `json:"providerName"`
	ClientID         string    `json:"clientId"`
	ClientSecret     string    `json:"-"`
	AuthorizationURL string    `json:"authorizationUrl"`
	TokenURL         string    `json:"tokenUrl"`
	UserInfoURL      string    `json:"userInfoUrl"`
	Scopes           []string  `json:"scopes"`
	AdditionalConfig string    `json:"additionalConfig,omitempty"`
	Enabled          bool      `json:"enabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ConfigInput is the admin-supplied shape for creating or updating a
// provider configuration.
type ConfigInput struct {
	ProviderName     string   `json:"providerName"`
	ClientID         string   `json:"clientId"`
	ClientSecret     string   `json:"clientSecret"`
	AuthorizationURL string   `json:"authorizationUrl"`
	TokenURL         string   `json:"tokenUrl"`
	UserInfoURL      string   `json:"userInfoUrl"`
	Scopes           []string `json:"scopes"`
	AdditionalConfig string   `json:"additionalConfig"`
	Enabled          bool     `json:"enabled"`
}

// Validate checks provider name and the required fields.
func (in ConfigInput) Validate() error {
	switch in.ProviderName {
	case ProviderGoogle, ProviderGitHub, ProviderMicrosoft, ProviderApple, ProviderCustom:
	default:
		return apperr.Validation("providerName must be google, github, microsoft, apple or custom")
	}
	if in.ClientID == "" || in.ClientSecret == "" {
		return apperr.Validation("clientId and clientSecret are required")
	}
	if in.AuthorizationURL == "" || in.TokenURL == "" || in.UserInfoURL == "" {
		return apperr.Validation("authorizationUrl, tokenUrl and userInfoUrl are required")
	}
	return nil
}

// ConfigStore persists provider configurations. Secrets pass through the
// keeper on the way in and out; a nil keeper stores them as plaintext.
type ConfigStore struct {
	db     storage.DBTX
	keeper *crypto.Keeper
}

func NewConfigStore(db storage.DBTX, keeper *crypto.Keeper) *ConfigStore {
	return &ConfigStore{db: db, keeper: keeper}
}

const configCols = `id, project_id, provider_name, client_id, client_secret,
	authorization_url, token_url, userinfo_url, scopes, additional_config, enabled, created_at, updated_at`

func (s *ConfigStore) scan(row pgx.Row) (*Config, error) {
	c := &Config{}
	var scopes, additional []byte
	err := row.Scan(&c.ID, &c.ProjectID, &c.ProviderName, &c.ClientID, &c.ClientSecret,
		&c.AuthorizationURL, &c.TokenURL, &c.UserInfoURL, &scopes, &additional, &c.Enabled,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(scopes, &c.Scopes); err != nil {
		return nil, fmt.Errorf("oauth_scopes_decode_failed: %w", err)
	}
	c.AdditionalConfig = string(additional)

	secret, err := s.keeper.Decrypt(c.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("oauth_secret_decrypt_failed: %w", err)
	}
	c.ClientSecret = secret
	return c, nil
}

// Upsert creates or replaces the configuration for (project, provider).
func (s *ConfigStore) Upsert(ctx context.Context, projectID string, in ConfigInput) (*Config, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	secret, err := s.keeper.Encrypt(in.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("oauth_secret_encrypt_failed: %w", err)
	}
	scopes, err := json.Marshal(in.Scopes)
	if err != nil {
		return nil, fmt.Errorf("oauth_scopes_encode_failed: %w", err)
	}
	additional := in.AdditionalConfig
	if additional == "" {
		additional = "{}"
	}

	query := `
		INSERT INTO oauth_provider_configs
			(project_id, provider_name, client_id, client_secret, authorization_url, token_url, userinfo_url, scopes, additional_config, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (project_id, provider_name) DO UPDATE
		SET client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			authorization_url = EXCLUDED.authorization_url,
			token_url = EXCLUDED.token_url,
			userinfo_url = EXCLUDED.userinfo_url,
			scopes = EXCLUDED.scopes,
			additional_config = EXCLUDED.additional_config,
			enabled = EXCLUDED.enabled
		RETURNING ` + configCols

	c, err := s.scan(s.db.QueryRow(ctx, query,
		projectID, in.ProviderName, in.ClientID, secret,
		in.AuthorizationURL, in.TokenURL, in.UserInfoURL, scopes, additional, in.Enabled))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, apperr.NotFound("Project")
		}
		return nil, fmt.Errorf("oauth_config_upsert_failed: %w", err)
	}
	return c, nil
}

// Get loads the enabled configuration for (project, provider).
func (s *ConfigStore) Get(ctx context.Context, projectID, providerName string) (*Config, error) {
	query := `SELECT ` + configCols + ` FROM oauth_provider_configs WHERE project_id = $1 AND provider_name = $2`
	c, err := s.scan(s.db.QueryRow(ctx, query, projectID, providerName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("OAuth provider")
		}
		return nil, err
	}
	return c, nil
}

// List returns all configurations for a project.
func (s *ConfigStore) List(ctx context.Context, projectID string) ([]*Config, error) {
	query := `SELECT ` + configCols + ` FROM oauth_provider_configs WHERE project_id = $1 ORDER BY provider_name`
	rows, err := s.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("oauth_config_list_failed: %w", err)
	}
	defer rows.Close()

	var configs []*Config
	for rows.Next() {
		c, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// Delete removes one configuration.
func (s *ConfigStore) Delete(ctx context.Context, projectID, providerName string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM oauth_provider_configs WHERE project_id = $1 AND provider_name = $2`,
		projectID, providerName)
	if err != nil {
		return fmt.Errorf("oauth_config_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("OAuth provider")
	}
	return nil
}
