// Package auth implements the end-user authentication engine: registration,
// login, token verification, refresh rotation, logout, and the password
// reset and email confirmation flows.
package auth

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/audit"
	"github.com/gatehouse-dev/gatehouse/internal/project"
	"github.com/gatehouse-dev/gatehouse/internal/ratelimit"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
	"github.com/gatehouse-dev/gatehouse/internal/token"
	"github.com/gatehouse-dev/gatehouse/internal/user"
)

// EmailSender dispatches a templated email for a project. The mailer
// package provides the production implementation.
type EmailSender interface {
	Send(ctx context.Context, projectID, emailType, to string, vars map[string]string) error
}

// TokenPair is the access+refresh pair returned by register, login, oauth
// and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Engine drives all end-user authentication for every project.
type Engine struct {
	pool      *pgxpool.Pool
	projects  *project.Store
	users     *user.Store
	refresh   *token.RefreshStore
	singleUse *token.SingleUseStore
	limiter   *ratelimit.Engine
	audit     audit.Logger
	mailer    EmailSender
	log       *slog.Logger
}

func NewEngine(
	pool *pgxpool.Pool,
	projects *project.Store,
	users *user.Store,
	refresh *token.RefreshStore,
	singleUse *token.SingleUseStore,
	limiter *ratelimit.Engine,
	auditLog audit.Logger,
	mailer EmailSender,
	log *slog.Logger,
) *Engine {
	return &Engine{
		pool:      pool,
		projects:  projects,
		users:     users,
		refresh:   refresh,
		singleUse: singleUse,
		limiter:   limiter,
		audit:     auditLog,
		mailer:    mailer,
		log:       log,
	}
}

// RegisterInput is the end-user registration request.
type RegisterInput struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"displayName"`
}

// loadEnabledProject resolves a project and refuses disabled ones.
func (e *Engine) loadEnabledProject(ctx context.Context, projectID string) (*project.Project, error) {
	p, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.Enabled {
		return nil, apperr.AuthFailure("Project is disabled")
	}
	return p, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// recordFailure appends a failed attempt row. Recording failures must not
// mask the original error, so its own errors only get logged.
func (e *Engine) recordFailure(ctx context.Context, projectID, attemptType, email string, meta token.RequestMeta, userID *uuid.UUID, cause error) {
	err := e.limiter.Record(ctx, ratelimit.Attempt{
		ProjectID:     projectID,
		AttemptType:   attemptType,
		Email:         email,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		Success:       false,
		FailureReason: cause.Error(),
		UserID:        userID,
	})
	if err != nil {
		e.log.Error("attempt_record_failed", "project_id", projectID, "type", attemptType, "error", err)
	}
}

func (e *Engine) recordSuccess(ctx context.Context, projectID, attemptType, email string, meta token.RequestMeta, userID *uuid.UUID) {
	err := e.limiter.Record(ctx, ratelimit.Attempt{
		ProjectID:   projectID,
		AttemptType: attemptType,
		Email:       email,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Success:     true,
		UserID:      userID,
	})
	if err != nil {
		e.log.Error("attempt_record_failed", "project_id", projectID, "type", attemptType, "error", err)
	}
}

// Register creates a new end-user account and signs them in.
func (e *Engine) Register(ctx context.Context, projectID string, in RegisterInput, meta token.RequestMeta) (*user.User, *TokenPair, error) {
	email := normalizeEmail(in.Email)

	if err := e.limiter.Check(ctx, projectID, ratelimit.AttemptRegister, meta.IPAddress, email); err != nil {
		return nil, nil, err
	}

	p, err := e.loadEnabledProject(ctx, projectID)
	if err != nil {
		e.recordFailure(ctx, projectID, ratelimit.AttemptRegister, email, meta, nil, err)
		return nil, nil, err
	}

	if !validEmail(email) {
		err := apperr.Validation("Invalid email address")
		e.recordFailure(ctx, projectID, ratelimit.AttemptRegister, email, meta, nil, err)
		return nil, nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		e.recordFailure(ctx, projectID, ratelimit.AttemptRegister, email, meta, nil, err)
		return nil, nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		e.recordFailure(ctx, projectID, ratelimit.AttemptRegister, email, meta, nil, err)
		return nil, nil, err
	}

	u, err := e.users.Create(ctx, p.UserTableName, user.CreateParams{
		Email:        email,
		PasswordHash: &hash,
		DisplayName:  in.DisplayName,
	})
	if err != nil {
		e.recordFailure(ctx, projectID, ratelimit.AttemptRegister, email, meta, nil, err)
		return nil, nil, err
	}

	pair, err := e.mintPair(ctx, p, u, meta)
	if err != nil {
		e.recordFailure(ctx, projectID, ratelimit.AttemptRegister, email, meta, &u.ID, err)
		return nil, nil, err
	}

	e.recordSuccess(ctx, projectID, ratelimit.AttemptRegister, email, meta, &u.ID)
	e.audit.Log(ctx, audit.Event{
		ProjectID: &p.ID,
		EventType: "user_created",
		UserID:    &u.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		EventData: map[string]any{"email": u.Email},
	})

	e.sendConfirmationEmail(ctx, p, u)

	return u, pair, nil
}

// Login authenticates an existing user with email and password.
func (e *Engine) Login(ctx context.Context, projectID, email, password string, meta token.RequestMeta) (*user.User, *TokenPair, error) {
	email = normalizeEmail(email)

	if err := e.limiter.Check(ctx, projectID, ratelimit.AttemptLogin, meta.IPAddress, email); err != nil {
		return nil, nil, err
	}

	p, err := e.loadEnabledProject(ctx, projectID)
	if err != nil {
		e.recordFailure(ctx, projectID, ratelimit.AttemptLogin, email, meta, nil, err)
		return nil, nil, err
	}

	u, err := e.users.GetByEmail(ctx, p.UserTableName, email)
	if err != nil {
		// A missing user answers exactly like a wrong password.
		failure := apperr.AuthFailure("Invalid credentials")
		e.recordFailure(ctx, projectID, ratelimit.AttemptLogin, email, meta, nil, failure)
		return nil, nil, failure
	}

	if u.Status == user.StatusSuspended {
		failure := apperr.AuthFailure("Account is suspended")
		e.recordFailure(ctx, projectID, ratelimit.AttemptLogin, email, meta, &u.ID, failure)
		return nil, nil, failure
	}
	if u.PasswordHash == nil {
		failure := apperr.AuthFailure("Password authentication not set up")
		e.recordFailure(ctx, projectID, ratelimit.AttemptLogin, email, meta, &u.ID, failure)
		return nil, nil, failure
	}
	if !CheckPassword(*u.PasswordHash, password) {
		failure := apperr.AuthFailure("Invalid credentials")
		e.recordFailure(ctx, projectID, ratelimit.AttemptLogin, email, meta, &u.ID, failure)
		return nil, nil, failure
	}

	if err := e.users.UpdateLastLogin(ctx, p.UserTableName, u.ID); err != nil {
		e.log.Error("last_login_update_failed", "project_id", projectID, "user_id", u.ID, "error", err)
	}

	pair, err := e.mintPair(ctx, p, u, meta)
	if err != nil {
		e.recordFailure(ctx, projectID, ratelimit.AttemptLogin, email, meta, &u.ID, err)
		return nil, nil, err
	}

	e.recordSuccess(ctx, projectID, ratelimit.AttemptLogin, email, meta, &u.ID)
	e.audit.Log(ctx, audit.Event{
		ProjectID: &p.ID,
		EventType: "user_login",
		UserID:    &u.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})

	return u, pair, nil
}

// mintPair issues a fresh access+refresh pair for the user.
func (e *Engine) mintPair(ctx context.Context, p *project.Project, u *user.User, meta token.RequestMeta) (*TokenPair, error) {
	access, err := MintAccessToken(p, u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := e.refresh.Issue(ctx, p.ID, u.ID, p.RefreshTokenTTL(), meta)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// MintFor issues a pair for an externally authenticated user. The OAuth
// engine calls this after a successful callback.
func (e *Engine) MintFor(ctx context.Context, p *project.Project, u *user.User, meta token.RequestMeta) (string, string, error) {
	pair, err := e.mintPair(ctx, p, u, meta)
	if err != nil {
		return "", "", err
	}
	return pair.AccessToken, pair.RefreshToken, nil
}

// Authenticate verifies a bearer access token and loads the user it names.
func (e *Engine) Authenticate(ctx context.Context, projectID, accessToken string) (*user.User, error) {
	p, err := e.loadEnabledProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	claims, err := VerifyAccessToken(p, accessToken)
	if err != nil {
		return nil, err
	}
	userID, err := UserIDFromClaims(claims)
	if err != nil {
		return nil, err
	}

	u, err := e.users.GetByID(ctx, p.UserTableName, userID)
	if err != nil {
		return nil, apperr.AuthFailure("Invalid or expired token")
	}
	if !u.IsActive() {
		return nil, apperr.AuthFailure("Invalid or expired token")
	}
	return u, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is minted in the same transaction. Presenting an already-rotated
// token is treated as compromise and revokes every token of that user.
func (e *Engine) Refresh(ctx context.Context, projectID, refreshToken string, meta token.RequestMeta) (*TokenPair, error) {
	if err := e.limiter.Check(ctx, projectID, ratelimit.AttemptRefresh, meta.IPAddress, ""); err != nil {
		return nil, err
	}

	p, err := e.loadEnabledProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	row, err := e.refresh.GetByHash(ctx, p.ID, token.HashToken(refreshToken))
	if err != nil {
		e.recordFailure(ctx, projectID, ratelimit.AttemptRefresh, "", meta, nil, apperr.From(err))
		return nil, err
	}

	if row.Revoked {
		// Reuse of a rotated token means the plaintext leaked somewhere.
		if err := e.refresh.RevokeAllForUser(ctx, p.ID, row.UserID, token.ReasonReuse); err != nil {
			e.log.Error("reuse_revocation_failed", "project_id", p.ID, "user_id", row.UserID, "error", err)
		}
		failure := apperr.AuthFailure("Invalid refresh token")
		e.recordFailure(ctx, projectID, ratelimit.AttemptRefresh, "", meta, &row.UserID, failure)
		e.audit.Log(ctx, audit.Event{
			ProjectID:   &p.ID,
			EventType:   "refresh_token_reuse",
			EventStatus: audit.StatusWarning,
			UserID:      &row.UserID,
			IPAddress:   meta.IPAddress,
			UserAgent:   meta.UserAgent,
		})
		return nil, failure
	}

	if row.ExpiresAt.Before(time.Now()) {
		failure := apperr.AuthFailure("Invalid refresh token")
		e.recordFailure(ctx, projectID, ratelimit.AttemptRefresh, "", meta, &row.UserID, failure)
		return nil, failure
	}

	u, err := e.users.GetByID(ctx, p.UserTableName, row.UserID)
	if err != nil || !u.IsActive() {
		failure := apperr.AuthFailure("Invalid refresh token")
		e.recordFailure(ctx, projectID, ratelimit.AttemptRefresh, "", meta, &row.UserID, failure)
		return nil, failure
	}

	access, err := MintAccessToken(p, u.ID, u.Email)
	if err != nil {
		return nil, err
	}

	var newRefresh string
	err = storage.WithTx(ctx, e.pool, func(tx pgx.Tx) error {
		store := e.refresh.WithTx(tx)
		if err := store.TouchLastUsed(ctx, row.ID); err != nil {
			return err
		}
		if err := store.Revoke(ctx, row.ID, token.ReasonRotated); err != nil {
			return err
		}
		newRefresh, err = store.Issue(ctx, p.ID, u.ID, p.RefreshTokenTTL(), meta)
		return err
	})
	if err != nil {
		e.recordFailure(ctx, projectID, ratelimit.AttemptRefresh, "", meta, &u.ID, apperr.From(err))
		return nil, err
	}

	e.recordSuccess(ctx, projectID, ratelimit.AttemptRefresh, "", meta, &u.ID)
	return &TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// Logout revokes the presented refresh token. Unknown tokens are a no-op so
// logout stays idempotent.
func (e *Engine) Logout(ctx context.Context, projectID, refreshToken string, meta token.RequestMeta) error {
	p, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}

	row, err := e.refresh.GetByHash(ctx, p.ID, token.HashToken(refreshToken))
	if err != nil {
		if apperr.As(err) != nil {
			return nil
		}
		return err
	}
	if row.Revoked {
		return nil
	}

	if err := e.refresh.Revoke(ctx, row.ID, token.ReasonUserLogout); err != nil {
		return err
	}

	e.audit.Log(ctx, audit.Event{
		ProjectID: &p.ID,
		EventType: "user_logout",
		UserID:    &row.UserID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}

// RevokeAllUserTokens revokes every active refresh token of one user.
// Exposed on the admin surface.
func (e *Engine) RevokeAllUserTokens(ctx context.Context, projectID string, userID uuid.UUID, adminID *uuid.UUID) error {
	p, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if err := e.refresh.RevokeAllForUser(ctx, p.ID, userID, token.ReasonAdmin); err != nil {
		return err
	}
	e.audit.Log(ctx, audit.Event{
		ProjectID:   &p.ID,
		EventType:   "user_tokens_revoked",
		UserID:      &userID,
		AdminUserID: adminID,
	})
	return nil
}
