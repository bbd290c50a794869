package mailer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
)

// Email template types.
const (
	TypeConfirmation  = "confirmation"
	TypePasswordReset = "password_reset"
	TypeWelcome       = "welcome"
	TypeMagicLink     = "magic_link"
	TypeEmailChange   = "email_change"
	TypeOTP           = "otp"
)

// ValidTemplateType reports whether t is a known template type.
func ValidTemplateType(t string) bool {
	switch t {
	case TypeConfirmation, TypePasswordReset, TypeWelcome, TypeMagicLink, TypeEmailChange, TypeOTP:
		return true
	}
	return false
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes {{key}} placeholders from vars. Unknown placeholders
// are left intact so a missing value is visible in the delivered mail
// rather than silently blank.
func Render(template string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		if val, ok := vars[key]; ok {
			return val
		}
		return match
	})
}

// Template is one email template row. A nil ProjectID marks a system
// default.
type Template struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    *string   `json:"projectId"`
	TemplateType string    `json:"templateType"`
	Subject      string    `json:"subject"`
	HTMLBody     string    `json:"htmlBody"`
	TextBody     *string   `json:"textBody"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TemplateInput is the admin-supplied template shape.
type TemplateInput struct {
	TemplateType string  `json:"templateType"`
	Subject      string  `json:"subject"`
	HTMLBody     string  `json:"htmlBody"`
	TextBody     *string `json:"textBody"`
}

func (in TemplateInput) Validate() error {
	if !ValidTemplateType(in.TemplateType) {
		return apperr.Validation("templateType must be confirmation, password_reset, welcome, magic_link, email_change or otp")
	}
	if in.Subject == "" || in.HTMLBody == "" {
		return apperr.Validation("subject and htmlBody are required")
	}
	return nil
}

// TemplateStore persists templates and resolves the per-project override
// chain.
type TemplateStore struct {
	db storage.DBTX
}

func NewTemplateStore(db storage.DBTX) *TemplateStore {
	return &TemplateStore{db: db}
}

const templateCols = `id, project_id, template_type, subject, html_body, text_body, created_at, updated_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	t := &Template{}
	err := row.Scan(&t.ID, &t.ProjectID, &t.TemplateType, &t.Subject, &t.HTMLBody, &t.TextBody,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Resolve finds the template to use for (project, type): the project's own
// override first, then the system default.
func (s *TemplateStore) Resolve(ctx context.Context, projectID, templateType string) (*Template, error) {
	const query = `
		SELECT ` + templateCols + ` FROM email_templates
		WHERE template_type = $2 AND (project_id = $1 OR project_id IS NULL)
		ORDER BY project_id NULLS LAST
		LIMIT 1`

	t, err := scanTemplate(s.db.QueryRow(ctx, query, projectID, templateType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Email template")
		}
		return nil, fmt.Errorf("template_resolve_failed: %w", err)
	}
	return t, nil
}

// Upsert creates or replaces a project's override for one template type.
// Pass an empty projectID to manage the system default.
func (s *TemplateStore) Upsert(ctx context.Context, projectID string, in TemplateInput) (*Template, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var query string
	var args []any
	if projectID == "" {
		query = `
			INSERT INTO email_templates (project_id, template_type, subject, html_body, text_body)
			VALUES (NULL, $1, $2, $3, $4)
			ON CONFLICT (template_type) WHERE project_id IS NULL DO UPDATE
			SET subject = EXCLUDED.subject, html_body = EXCLUDED.html_body, text_body = EXCLUDED.text_body
			RETURNING ` + templateCols
		args = []any{in.TemplateType, in.Subject, in.HTMLBody, in.TextBody}
	} else {
		query = `
			INSERT INTO email_templates (project_id, template_type, subject, html_body, text_body)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (project_id, template_type) WHERE project_id IS NOT NULL DO UPDATE
			SET subject = EXCLUDED.subject, html_body = EXCLUDED.html_body, text_body = EXCLUDED.text_body
			RETURNING ` + templateCols
		args = []any{projectID, in.TemplateType, in.Subject, in.HTMLBody, in.TextBody}
	}

	t, err := scanTemplate(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("template_upsert_failed: %w", err)
	}
	return t, nil
}

// List returns a project's overrides, or the system defaults for an empty
// projectID.
func (s *TemplateStore) List(ctx context.Context, projectID string) ([]*Template, error) {
	var rows pgx.Rows
	var err error
	if projectID == "" {
		rows, err = s.db.Query(ctx,
			`SELECT `+templateCols+` FROM email_templates WHERE project_id IS NULL ORDER BY template_type`)
	} else {
		rows, err = s.db.Query(ctx,
			`SELECT `+templateCols+` FROM email_templates WHERE project_id = $1 ORDER BY template_type`, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("template_list_failed: %w", err)
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("template_scan_failed: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// Delete removes a project's override; the system default remains.
func (s *TemplateStore) Delete(ctx context.Context, projectID, templateType string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM email_templates WHERE project_id = $1 AND template_type = $2`,
		projectID, templateType)
	if err != nil {
		return fmt.Errorf("template_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Email template")
	}
	return nil
}
