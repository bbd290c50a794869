// Package ratelimit implements the per-project, database-window rate
// limiter. Limits are evaluated over the auth_attempts table: only failed
// attempts count, and old rows age out of the window implicitly.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
)

// Attempt types recorded in auth_attempts.
const (
	AttemptLogin         = "login"
	AttemptRegister      = "register"
	AttemptPasswordReset = "password_reset"
	AttemptOAuth         = "oauth"
	AttemptRefresh       = "refresh"
)

// Rule types.
const (
	RulePerIP      = "per_ip"
	RulePerEmail   = "per_email"
	RulePerProject = "per_project"
)

// Actions. Only block is enforced; delay and captcha are stored for
// forward compatibility.
const (
	ActionBlock   = "block"
	ActionDelay   = "delay"
	ActionCaptcha = "captcha"
)

// Rule is one configured limit for a project.
type Rule struct {
	ID                   uuid.UUID `json:"id"`
	ProjectID            string    `json:"projectId"`
	RuleType             string    `json:"ruleType"`
	WindowSeconds        int       `json:"windowSeconds"`
	MaxAttempts          int       `json:"maxAttempts"`
	Action               string    `json:"action"`
	BlockDurationSeconds int       `json:"blockDurationSeconds"`
	Enabled              bool      `json:"enabled"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Attempt is one recorded authentication attempt.
type Attempt struct {
	ProjectID     string
	AttemptType   string
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	UserID        *uuid.UUID
}

// Engine checks and records attempts.
type Engine struct {
	db storage.DBTX
}

func NewEngine(db storage.DBTX) *Engine {
	return &Engine{db: db}
}

// Check evaluates every enabled rule for the project against the failed
// attempts inside each rule's window. Counting is by rule dimension only:
// failed logins, registers and reset requests all pool into the same
// per-IP or per-email budget. The first exceeded rule fails the request
// with its block duration as the retry hint.
func (e *Engine) Check(ctx context.Context, projectID, attemptType, ipAddress, email string) error {
	rules, err := e.enabledRules(ctx, projectID)
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if rule.Action != ActionBlock {
			continue
		}
		count, err := e.countFailed(ctx, projectID, rule, ipAddress, email)
		if err != nil {
			return err
		}
		if count >= rule.MaxAttempts {
			return apperr.RateLimited(rule.BlockDurationSeconds)
		}
	}
	return nil
}

func (e *Engine) enabledRules(ctx context.Context, projectID string) ([]Rule, error) {
	const query = `
		SELECT id, project_id, rule_type, window_seconds, max_attempts, action, block_duration_seconds, enabled, created_at, updated_at
		FROM rate_limit_rules
		WHERE project_id = $1 AND enabled = TRUE`

	rows, err := e.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("rate_limit_rules_load_failed: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func (e *Engine) countFailed(ctx context.Context, projectID string, rule Rule, ipAddress, email string) (int, error) {
	query := `
		SELECT COUNT(*) FROM auth_attempts
		WHERE project_id = $1 AND success = FALSE
		  AND created_at > NOW() - ($2 * INTERVAL '1 second')`
	args := []any{projectID, rule.WindowSeconds}

	switch rule.RuleType {
	case RulePerIP:
		if ipAddress == "" {
			return 0, nil
		}
		query += ` AND ip_address = $3`
		args = append(args, ipAddress)
	case RulePerEmail:
		if email == "" {
			return 0, nil
		}
		query += ` AND email = $3`
		args = append(args, email)
	case RulePerProject:
		// No extra constraint.
	default:
		return 0, nil
	}

	var count int
	if err := e.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("rate_limit_count_failed: %w", err)
	}
	return count, nil
}

// Record appends one attempt row. Successful attempts are recorded too;
// they just never count against a limit.
func (e *Engine) Record(ctx context.Context, a Attempt) error {
	const query = `
		INSERT INTO auth_attempts (project_id, attempt_type, email, ip_address, user_agent, success, failure_reason, user_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), $8)`

	_, err := e.db.Exec(ctx, query,
		a.ProjectID, a.AttemptType, a.Email, a.IPAddress, a.UserAgent, a.Success, a.FailureReason, a.UserID)
	if err != nil {
		return fmt.Errorf("attempt_record_failed: %w", err)
	}
	return nil
}

func scanRules(rows pgx.Rows) ([]Rule, error) {
	var rules []Rule
	for rows.Next() {
		var r Rule
		err := rows.Scan(&r.ID, &r.ProjectID, &r.RuleType, &r.WindowSeconds, &r.MaxAttempts,
			&r.Action, &r.BlockDurationSeconds, &r.Enabled, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("rate_limit_rule_scan_failed: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
