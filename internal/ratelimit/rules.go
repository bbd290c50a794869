package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
)

// RuleInput is the admin-supplied shape for creating or replacing a rule.
type RuleInput struct {
	RuleType             string `json:"ruleType"`
	WindowSeconds        int    `json:"windowSeconds"`
	MaxAttempts          int    `json:"maxAttempts"`
	Action               string `json:"action"`
	BlockDurationSeconds int    `json:"blockDurationSeconds"`
	Enabled              bool   `json:"enabled"`
}

// Validate checks the documented ranges.
func (in RuleInput) Validate() error {
	switch in.RuleType {
	case RulePerIP, RulePerEmail, RulePerProject:
	default:
		return apperr.Validation("ruleType must be per_ip, per_email or per_project")
	}
	switch in.Action {
	case ActionBlock, ActionDelay, ActionCaptcha:
	default:
		return apperr.Validation("action must be block, delay or captcha")
	}
	if in.WindowSeconds < 1 || in.WindowSeconds > 3600 {
		return apperr.Validation("windowSeconds must be between 1 and 3600")
	}
	if in.MaxAttempts < 1 || in.MaxAttempts > 1000 {
		return apperr.Validation("maxAttempts must be between 1 and 1000")
	}
	if in.BlockDurationSeconds < 60 || in.BlockDurationSeconds > 86400 {
		return apperr.Validation("blockDurationSeconds must be between 60 and 86400")
	}
	return nil
}

// RuleStore is the admin CRUD surface for rate limit rules.
type RuleStore struct {
	db storage.DBTX
}

func NewRuleStore(db storage.DBTX) *RuleStore {
	return &RuleStore{db: db}
}

const ruleCols = `id, project_id, rule_type, window_seconds, max_attempts, action, block_duration_seconds, enabled, created_at, updated_at`

// List returns all rules for a project.
func (s *RuleStore) List(ctx context.Context, projectID string) ([]Rule, error) {
	query := `SELECT ` + ruleCols + ` FROM rate_limit_rules WHERE project_id = $1 ORDER BY rule_type`
	rows, err := s.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("rate_limit_rules_list_failed: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// Upsert creates the rule or replaces the existing one for the same
// (project, ruleType) pair.
func (s *RuleStore) Upsert(ctx context.Context, projectID string, in RuleInput) (*Rule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO rate_limit_rules (project_id, rule_type, window_seconds, max_attempts, action, block_duration_seconds, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (project_id, rule_type) DO UPDATE
		SET window_seconds = EXCLUDED.window_seconds,
			max_attempts = EXCLUDED.max_attempts,
			action = EXCLUDED.action,
			block_duration_seconds = EXCLUDED.block_duration_seconds,
			enabled = EXCLUDED.enabled
		RETURNING ` + ruleCols

	var r Rule
	err := s.db.QueryRow(ctx, query,
		projectID, in.RuleType, in.WindowSeconds, in.MaxAttempts, in.Action, in.BlockDurationSeconds, in.Enabled,
	).Scan(&r.ID, &r.ProjectID, &r.RuleType, &r.WindowSeconds, &r.MaxAttempts,
		&r.Action, &r.BlockDurationSeconds, &r.Enabled, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, apperr.NotFound("Project")
		}
		return nil, fmt.Errorf("rate_limit_rule_upsert_failed: %w", err)
	}
	return &r, nil
}

// Delete removes one rule.
func (s *RuleStore) Delete(ctx context.Context, projectID string, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM rate_limit_rules WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return fmt.Errorf("rate_limit_rule_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Rate limit rule")
	}
	return nil
}

// Get loads one rule.
func (s *RuleStore) Get(ctx context.Context, projectID string, id uuid.UUID) (*Rule, error) {
	query := `SELECT ` + ruleCols + ` FROM rate_limit_rules WHERE id = $1 AND project_id = $2`
	var r Rule
	err := s.db.QueryRow(ctx, query, id, projectID).Scan(
		&r.ID, &r.ProjectID, &r.RuleType, &r.WindowSeconds, &r.MaxAttempts,
		&r.Action, &r.BlockDurationSeconds, &r.Enabled, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Rate limit rule")
		}
		return nil, fmt.Errorf("rate_limit_rule_lookup_failed: %w", err)
	}
	return &r, nil
}
