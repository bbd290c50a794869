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

// TTLs for the two single-use flows. Both share the same table; the flows
// are distinguished only by which operation consumes the row.
const (
	ResetTokenTTL        = time.Hour
	ConfirmationTokenTTL = 24 * time.Hour

	// cleanupRetention keeps expired rows around for a day before deletion.
	cleanupRetention = 24 * time.Hour
)

// SingleUseToken is a password-reset or email-confirmation token row.
// ExpiresAt is Unix seconds; UsedAt transitions NULL → timestamp exactly once.
type SingleUseToken struct {
	ID        uuid.UUID
	ProjectID string
	UserID    uuid.UUID
	Email     string
	TokenHash string
	ExpiresAt int64
	UsedAt    *time.Time
	CreatedAt time.Time
}

// SingleUseStore persists single-use tokens.
type SingleUseStore struct {
	db storage.DBTX
}

func NewSingleUseStore(db storage.DBTX) *SingleUseStore {
	return &SingleUseStore{db: db}
}

// WithTx returns a copy of the store bound to tx.
func (s *SingleUseStore) WithTx(tx pgx.Tx) *SingleUseStore {
	return &SingleUseStore{db: tx}
}

// Create generates a token, stores its hash with the given TTL and returns
// the plaintext for the email link.
func (s *SingleUseStore) Create(ctx context.Context, projectID string, userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	plaintext, err := GenerateSecureToken(SingleUseTokenLength)
	if err != nil {
		return "", err
	}

	const query = `
		INSERT INTO single_use_tokens (project_id, user_id, email, token_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = s.db.Exec(ctx, query, projectID, userID, email, HashToken(plaintext), time.Now().Add(ttl).Unix())
	if err != nil {
		return "", fmt.Errorf("single_use_token_insert_failed: %w", err)
	}

	return plaintext, nil
}

// Validate hashes the plaintext and returns the matching unused, unexpired
// row. Absent, consumed and expired tokens all fail identically.
func (s *SingleUseStore) Validate(ctx context.Context, projectID, plaintext string) (*SingleUseToken, error) {
	const query = `
		SELECT id, project_id, user_id, email, token_hash, expires_at, used_at, created_at
		FROM single_use_tokens
		WHERE project_id = $1 AND token_hash = $2`

	t := &SingleUseToken{}
	err := s.db.QueryRow(ctx, query, projectID, HashToken(plaintext)).Scan(
		&t.ID, &t.ProjectID, &t.UserID, &t.Email, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.AuthFailure("Invalid or expired token")
		}
		return nil, fmt.Errorf("single_use_token_lookup_failed: %w", err)
	}

	if t.UsedAt != nil {
		return nil, apperr.AuthFailure("Invalid or expired token")
	}
	if time.Now().Unix() > t.ExpiresAt {
		return nil, apperr.AuthFailure("Invalid or expired token")
	}

	return t, nil
}

// MarkUsed consumes the token. The used_at IS NULL guard makes consumption
// race-safe: at most one caller wins.
func (s *SingleUseStore) MarkUsed(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE single_use_tokens SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`

	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("single_use_token_consume_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.AuthFailure("Invalid or expired token")
	}
	return nil
}

// RevokeUserTokens marks all unused tokens of one user as used, e.g. after
// a successful password change.
func (s *SingleUseStore) RevokeUserTokens(ctx context.Context, projectID string, userID uuid.UUID) error {
	const query = `
		UPDATE single_use_tokens SET used_at = NOW()
		WHERE project_id = $1 AND user_id = $2 AND used_at IS NULL`

	if _, err := s.db.Exec(ctx, query, projectID, userID); err != nil {
		return fmt.Errorf("single_use_token_revoke_failed: %w", err)
	}
	return nil
}

// CleanupExpired deletes tokens that expired more than a day ago.
func (s *SingleUseStore) CleanupExpired(ctx context.Context) error {
	const query = `DELETE FROM single_use_tokens WHERE expires_at < $1`

	if _, err := s.db.Exec(ctx, query, time.Now().Add(-cleanupRetention).Unix()); err != nil {
		return fmt.Errorf("single_use_token_cleanup_failed: %w", err)
	}
	return nil
}
