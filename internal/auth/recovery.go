package auth

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/gatehouse-dev/gatehouse/internal/audit"
	"github.com/gatehouse-dev/gatehouse/internal/project"
	"github.com/gatehouse-dev/gatehouse/internal/ratelimit"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
	"github.com/gatehouse-dev/gatehouse/internal/token"
	"github.com/gatehouse-dev/gatehouse/internal/user"
)

// Email template types consumed by the recovery flows.
const (
	emailTypeConfirmation  = "confirmation"
	emailTypePasswordReset = "password_reset"
)

// ForgotPassword starts the reset flow. It never discloses whether the
// email exists: every outcome short of a rate limit reads as success.
func (e *Engine) ForgotPassword(ctx context.Context, projectID, email string, meta token.RequestMeta) error {
	email = normalizeEmail(email)

	if err := e.limiter.Check(ctx, projectID, ratelimit.AttemptPasswordReset, meta.IPAddress, email); err != nil {
		return err
	}

	p, err := e.loadEnabledProject(ctx, projectID)
	if err != nil {
		return err
	}

	u, err := e.users.GetByEmail(ctx, p.UserTableName, email)
	if err != nil {
		// Unknown email: record the attempt, answer success.
		e.recordFailure(ctx, projectID, ratelimit.AttemptPasswordReset, email, meta, nil, err)
		return nil
	}

	plaintext, err := e.singleUse.Create(ctx, p.ID, u.ID, u.Email, token.ResetTokenTTL)
	if err != nil {
		return err
	}

	vars := map[string]string{
		"displayName": displayNameOrEmail(u),
		"projectName": p.Name,
		"resetUrl":    buildLink(p.SiteURL, "/reset-password", plaintext),
	}
	if err := e.mailer.Send(ctx, p.ID, emailTypePasswordReset, u.Email, vars); err != nil {
		e.log.Error("password_reset_email_failed", "project_id", p.ID, "user_id", u.ID, "error", err)
		e.audit.Log(ctx, audit.Event{
			ProjectID:   &p.ID,
			EventType:   "password_reset_email_failed",
			EventStatus: audit.StatusWarning,
			UserID:      &u.ID,
			EventData:   map[string]any{"error": err.Error()},
		})
		return nil
	}

	e.recordSuccess(ctx, projectID, ratelimit.AttemptPasswordReset, email, meta, &u.ID)
	e.audit.Log(ctx, audit.Event{
		ProjectID: &p.ID,
		EventType: "password_reset_requested",
		UserID:    &u.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}

// ResetPassword consumes a reset token and sets the new password. The
// password update and the token consumption commit as one transaction, and
// every other outstanding reset token of the user is invalidated with them.
func (e *Engine) ResetPassword(ctx context.Context, projectID, plaintext, newPassword string, meta token.RequestMeta) error {
	p, err := e.loadEnabledProject(ctx, projectID)
	if err != nil {
		return err
	}

	row, err := e.singleUse.Validate(ctx, p.ID, plaintext)
	if err != nil {
		e.recordFailure(ctx, projectID, ratelimit.AttemptPasswordReset, "", meta, nil, err)
		return err
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = storage.WithTx(ctx, e.pool, func(tx pgx.Tx) error {
		if err := e.users.WithTx(tx).UpdatePassword(ctx, p.UserTableName, row.UserID, hash); err != nil {
			return err
		}
		tokens := e.singleUse.WithTx(tx)
		if err := tokens.MarkUsed(ctx, row.ID); err != nil {
			return err
		}
		return tokens.RevokeUserTokens(ctx, p.ID, row.UserID)
	})
	if err != nil {
		return err
	}

	// A changed password invalidates every existing session.
	if err := e.refresh.RevokeAllForUser(ctx, p.ID, row.UserID, token.ReasonAdmin); err != nil {
		e.log.Error("post_reset_revocation_failed", "project_id", p.ID, "user_id", row.UserID, "error", err)
	}

	e.recordSuccess(ctx, projectID, ratelimit.AttemptPasswordReset, row.Email, meta, &row.UserID)
	e.audit.Log(ctx, audit.Event{
		ProjectID: &p.ID,
		EventType: "password_reset_completed",
		UserID:    &row.UserID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}

// ConfirmEmail consumes a confirmation token and marks the address verified.
func (e *Engine) ConfirmEmail(ctx context.Context, projectID, plaintext string, meta token.RequestMeta) error {
	p, err := e.loadEnabledProject(ctx, projectID)
	if err != nil {
		return err
	}

	row, err := e.singleUse.Validate(ctx, p.ID, plaintext)
	if err != nil {
		return err
	}

	err = storage.WithTx(ctx, e.pool, func(tx pgx.Tx) error {
		if err := e.users.WithTx(tx).SetEmailVerified(ctx, p.UserTableName, row.UserID, true); err != nil {
			return err
		}
		return e.singleUse.WithTx(tx).MarkUsed(ctx, row.ID)
	})
	if err != nil {
		return err
	}

	e.audit.Log(ctx, audit.Event{
		ProjectID: &p.ID,
		EventType: "email_confirmed",
		UserID:    &row.UserID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}

// sendConfirmationEmail issues a confirmation token and mails the link.
// Failures are reported as a warning audit event, never as a registration
// failure.
func (e *Engine) sendConfirmationEmail(ctx context.Context, p *project.Project, u *user.User) {
	plaintext, err := e.singleUse.Create(ctx, p.ID, u.ID, u.Email, token.ConfirmationTokenTTL)
	if err != nil {
		e.log.Error("confirmation_token_create_failed", "project_id", p.ID, "user_id", u.ID, "error", err)
		return
	}

	vars := map[string]string{
		"displayName": displayNameOrEmail(u),
		"projectName": p.Name,
		"confirmUrl":  buildLink(p.SiteURL, "/confirm-email", plaintext),
	}
	if err := e.mailer.Send(ctx, p.ID, emailTypeConfirmation, u.Email, vars); err != nil {
		e.log.Warn("confirmation_email_failed", "project_id", p.ID, "user_id", u.ID, "error", err)
		e.audit.Log(ctx, audit.Event{
			ProjectID:   &p.ID,
			EventType:   "confirmation_email_failed",
			EventStatus: audit.StatusWarning,
			UserID:      &u.ID,
			EventData:   map[string]any{"error": err.Error()},
		})
	}
}

func displayNameOrEmail(u *user.User) string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Email
}

func buildLink(siteURL, path, tokenPlain string) string {
	return strings.TrimSuffix(siteURL, "/") + path + "?token=" + tokenPlain
}
