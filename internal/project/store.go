package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
)

// Store persists project rows and issues the dynamic per-project DDL.
// DDL cannot run inside the row transaction helpers, so Store keeps the
// pool directly.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const projectCols = `id, name, description, environment, signing_secret, signing_algorithm,
	access_token_ttl_seconds, refresh_token_ttl_seconds, enabled, user_table_name,
	site_url, redirect_allowlist, created_at, updated_at`

func scanProject(row pgx.Row) (*Project, error) {
	p := &Project{}
	var allowlist []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Environment, &p.SigningSecret, &p.SigningAlgorithm,
		&p.AccessTokenTTLSeconds, &p.RefreshTokenTTLSeconds, &p.Enabled, &p.UserTableName,
		&p.SiteURL, &allowlist, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(allowlist, &p.RedirectAllowlist); err != nil {
		return nil, fmt.Errorf("project_allowlist_decode_failed: %w", err)
	}
	return p, nil
}

// Insert creates the project row. A unique violation on (name, environment)
// or on the primary key surfaces as Conflict.
func (s *Store) Insert(ctx context.Context, p *Project) error {
	const query = `
		INSERT INTO projects (id, name, description, environment, signing_secret, signing_algorithm,
			access_token_ttl_seconds, refresh_token_ttl_seconds, enabled, user_table_name, site_url, redirect_allowlist)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	allowlist, err := json.Marshal(p.RedirectAllowlist)
	if err != nil {
		return fmt.Errorf("project_allowlist_encode_failed: %w", err)
	}

	_, err = s.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Environment, p.SigningSecret, p.SigningAlgorithm,
		p.AccessTokenTTLSeconds, p.RefreshTokenTTLSeconds, p.Enabled, p.UserTableName, p.SiteURL, allowlist,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("A project with this name and environment already exists")
		}
		return fmt.Errorf("project_insert_failed: %w", err)
	}
	return nil
}

// Get loads one project by id.
func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	query := `SELECT ` + projectCols + ` FROM projects WHERE id = $1`
	p, err := scanProject(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Project")
		}
		return nil, fmt.Errorf("project_lookup_failed: %w", err)
	}
	return p, nil
}

// List returns all projects ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Project, error) {
	query := `SELECT ` + projectCols + ` FROM projects ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("project_list_failed: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("project_scan_failed: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Update writes back all mutable fields of p.
func (s *Store) Update(ctx context.Context, p *Project) error {
	const query = `
		UPDATE projects
		SET name = $2, description = $3, signing_secret = $4,
			access_token_ttl_seconds = $5, refresh_token_ttl_seconds = $6,
			enabled = $7, user_table_name = $8, site_url = $9, redirect_allowlist = $10
		WHERE id = $1`

	allowlist, err := json.Marshal(p.RedirectAllowlist)
	if err != nil {
		return fmt.Errorf("project_allowlist_encode_failed: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.SigningSecret,
		p.AccessTokenTTLSeconds, p.RefreshTokenTTLSeconds,
		p.Enabled, p.UserTableName, p.SiteURL, allowlist,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("A project with this name and environment already exists")
		}
		return fmt.Errorf("project_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Project")
	}
	return nil
}

// Delete removes the project row. Related fixed-table rows cascade via FKs;
// the dynamic user table is dropped separately by the service.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("project_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Project")
	}
	return nil
}

// CreateUserTable issues the per-project user table DDL. The table name is
// sanitized again here regardless of what the caller derived; identifiers
// cannot be bound as parameters.
func (s *Store) CreateUserTable(ctx context.Context, tableName string) error {
	name := storage.SanitizeIdentifier(tableName)
	if name == "" {
		return apperr.Validation("Invalid user table name")
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email TEXT NOT NULL,
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			phone TEXT,
			phone_verified BOOLEAN NOT NULL DEFAULT FALSE,
			password_hash TEXT,
			oauth_provider TEXT,
			oauth_provider_user_id TEXT,
			oauth_raw_user_data TEXT,
			display_name TEXT,
			avatar_url TEXT,
			metadata TEXT,
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'suspended', 'deleted')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login_at TIMESTAMPTZ,
			UNIQUE (oauth_provider, oauth_provider_user_id)
		)`, name),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_email_live ON %s (email) WHERE status <> 'deleted'`, name, name),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_phone ON %s (phone) WHERE phone IS NOT NULL`, name, name),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_email ON %s (email)`, name, name),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_oauth ON %s (oauth_provider, oauth_provider_user_id) WHERE oauth_provider IS NOT NULL`, name, name),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s (status)`, name, name),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at)`, name, name),
		fmt.Sprintf(`CREATE OR REPLACE TRIGGER trg_%s_updated_at BEFORE UPDATE ON %s FOR EACH ROW EXECUTE FUNCTION set_updated_at()`, name, name),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("user_table_create_failed: %w", err)
		}
	}
	return nil
}

// DropUserTable drops the per-project user table.
func (s *Store) DropUserTable(ctx context.Context, tableName string) error {
	name := storage.SanitizeIdentifier(tableName)
	if name == "" {
		return nil
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, name)); err != nil {
		return fmt.Errorf("user_table_drop_failed: %w", err)
	}
	return nil
}

// InsertDefaultRateLimitRules writes the rules every new project starts with.
func (s *Store) InsertDefaultRateLimitRules(ctx context.Context, projectID string) error {
	const query = `
		INSERT INTO rate_limit_rules (project_id, rule_type, window_seconds, max_attempts, action, block_duration_seconds)
		VALUES
			($1, 'per_ip',    60,  5, 'block', 300),
			($1, 'per_email', 300, 3, 'block', 900)`

	if _, err := s.pool.Exec(ctx, query, projectID); err != nil {
		return fmt.Errorf("default_rules_insert_failed: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
