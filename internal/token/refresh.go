package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
)

// Revocation reasons recorded on refresh-token rows.
const (
	ReasonRotated    = "rotated"
	ReasonUserLogout = "user_logout"
	ReasonAdmin      = "admin_revoked"
	ReasonReuse      = "reuse_detected"
)

// RefreshToken is one row in the refresh_tokens table. The plaintext token
// is never stored; TokenHash is its SHA-256.
type RefreshToken struct {
	ID            uuid.UUID
	ProjectID     string
	UserID        uuid.UUID
	TokenHash     string
	DeviceName    *string
	UserAgent     *string
	IPAddress     *string
	ExpiresAt     time.Time
	Revoked       bool
	RevokedAt     *time.Time
	RevokedReason *string
	CreatedAt     time.Time
	LastUsedAt    *time.Time
}

// RequestMeta carries the client metadata recorded alongside tokens.
type RequestMeta struct {
	DeviceName string
	UserAgent  string
	IPAddress  string
}

// RefreshStore persists refresh tokens.
type RefreshStore struct {
	db storage.DBTX
}

func NewRefreshStore(db storage.DBTX) *RefreshStore {
	return &RefreshStore{db: db}
}

// WithTx returns a copy of the store bound to tx.
func (s *RefreshStore) WithTx(tx pgx.Tx) *RefreshStore {
	return &RefreshStore{db: tx}
}

const refreshCols = `id, project_id, user_id, token_hash, device_name, user_agent, ip_address,
	expires_at, revoked, revoked_at, revoked_reason, created_at, last_used_at`

// Issue generates a fresh refresh token, stores its hash with the given TTL
// and returns the plaintext. This is the only time the plaintext exists
// server-side.
func (s *RefreshStore) Issue(ctx context.Context, projectID string, userID uuid.UUID, ttl time.Duration, meta RequestMeta) (string, error) {
	plaintext, err := GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return "", err
	}

	const query = `
		INSERT INTO refresh_tokens (project_id, user_id, token_hash, device_name, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)`

	_, err = s.db.Exec(ctx, query,
		projectID, userID, HashToken(plaintext),
		meta.DeviceName, meta.UserAgent, meta.IPAddress,
		time.Now().Add(ttl),
	)
	if err != nil {
		return "", fmt.Errorf("refresh_token_insert_failed: %w", err)
	}

	return plaintext, nil
}

// GetByHash looks up a token row by hash within a project, revoked or not.
// Callers inspect Revoked themselves (reuse detection needs revoked rows).
func (s *RefreshStore) GetByHash(ctx context.Context, projectID, tokenHash string) (*RefreshToken, error) {
	query := `SELECT ` + refreshCols + ` FROM refresh_tokens WHERE project_id = $1 AND token_hash = $2`

	t := &RefreshToken{}
	err := s.db.QueryRow(ctx, query, projectID, tokenHash).Scan(
		&t.ID, &t.ProjectID, &t.UserID, &t.TokenHash, &t.DeviceName, &t.UserAgent, &t.IPAddress,
		&t.ExpiresAt, &t.Revoked, &t.RevokedAt, &t.RevokedReason, &t.CreatedAt, &t.LastUsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.AuthFailure("Invalid refresh token")
		}
		return nil, fmt.Errorf("refresh_token_lookup_failed: %w", err)
	}

	return t, nil
}

// Revoke marks a single token revoked with the given reason. Revoking an
// already-revoked row is a no-op (the original reason is kept).
func (s *RefreshStore) Revoke(ctx context.Context, id uuid.UUID, reason string) error {
	const query = `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW(), revoked_reason = $2
		WHERE id = $1 AND revoked = FALSE`

	if _, err := s.db.Exec(ctx, query, id, reason); err != nil {
		return fmt.Errorf("refresh_token_revoke_failed: %w", err)
	}
	return nil
}

// TouchLastUsed stamps last_used_at on the row being rotated.
func (s *RefreshStore) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE refresh_tokens SET last_used_at = NOW() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("refresh_token_touch_failed: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every active refresh token of one user in one
// project. Used on logout-everywhere, admin revocation, and reuse detection.
func (s *RefreshStore) RevokeAllForUser(ctx context.Context, projectID string, userID uuid.UUID, reason string) error {
	const query = `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW(), revoked_reason = $3
		WHERE project_id = $1 AND user_id = $2 AND revoked = FALSE`

	if _, err := s.db.Exec(ctx, query, projectID, userID, reason); err != nil {
		return fmt.Errorf("refresh_token_revoke_all_failed: %w", err)
	}
	return nil
}

// DeleteExpired removes rows whose expiry passed more than the grace window
// ago; revoked rows are retained inside the window for reuse detection.
func (s *RefreshStore) DeleteExpired(ctx context.Context, grace time.Duration) error {
	const query = `DELETE FROM refresh_tokens WHERE expires_at < $1`
	if _, err := s.db.Exec(ctx, query, time.Now().Add(-grace)); err != nil {
		return fmt.Errorf("refresh_token_cleanup_failed: %w", err)
	}
	return nil
}
