package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/storage"
)

// Store persists admin users and sessions.
type Store struct {
	db storage.DBTX
}

func NewStore(db storage.DBTX) *Store {
	return &Store{db: db}
}

const adminCols = `id, email, password_hash, name, role, enabled, last_login_at, created_at, updated_at`

func scanAdmin(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Enabled,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Insert creates an admin account.
func (s *Store) Insert(ctx context.Context, email, passwordHash, name, role string) (*User, error) {
	query := `
		INSERT INTO admin_users (email, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + adminCols

	u, err := scanAdmin(s.db.QueryRow(ctx, query, email, passwordHash, name, role))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("An admin with this email already exists")
		}
		return nil, fmt.Errorf("admin_insert_failed: %w", err)
	}
	return u, nil
}

// GetByEmail loads an admin by email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + adminCols + ` FROM admin_users WHERE email = $1`
	u, err := scanAdmin(s.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Admin user")
		}
		return nil, fmt.Errorf("admin_lookup_failed: %w", err)
	}
	return u, nil
}

// GetByID loads an admin by id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + adminCols + ` FROM admin_users WHERE id = $1`
	u, err := scanAdmin(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Admin user")
		}
		return nil, fmt.Errorf("admin_lookup_failed: %w", err)
	}
	return u, nil
}

// List returns all admin accounts.
func (s *Store) List(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + adminCols + ` FROM admin_users ORDER BY created_at`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("admin_list_failed: %w", err)
	}
	defer rows.Close()

	var admins []*User
	for rows.Next() {
		u, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("admin_scan_failed: %w", err)
		}
		admins = append(admins, u)
	}
	return admins, rows.Err()
}

// Update applies the non-nil fields of in.
func (s *Store) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*User, error) {
	query := `
		UPDATE admin_users
		SET name = COALESCE($2, name),
			role = COALESCE($3, role),
			enabled = COALESCE($4, enabled)
		WHERE id = $1
		RETURNING ` + adminCols

	u, err := scanAdmin(s.db.QueryRow(ctx, query, id, in.Name, in.Role, in.Enabled))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Admin user")
		}
		return nil, fmt.Errorf("admin_update_failed: %w", err)
	}
	return u, nil
}

// UpdatePassword replaces the password hash.
func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := s.db.Exec(ctx, `UPDATE admin_users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("admin_password_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Admin user")
	}
	return nil
}

// UpdateLastLogin stamps a successful login.
func (s *Store) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `UPDATE admin_users SET last_login_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("admin_last_login_update_failed: %w", err)
	}
	return nil
}

// Delete removes an admin account; its sessions cascade.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("admin_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Admin user")
	}
	return nil
}

// Count returns the number of admin accounts; used by the bootstrap check.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("admin_count_failed: %w", err)
	}
	return count, nil
}

// InsertSession stores a session row keyed by the token hash.
func (s *Store) InsertSession(ctx context.Context, adminID uuid.UUID, tokenHash, ipAddress, userAgent string, expiresAt time.Time) error {
	const query = `
		INSERT INTO admin_sessions (admin_user_id, token_hash, ip_address, user_agent, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)`

	if _, err := s.db.Exec(ctx, query, adminID, tokenHash, ipAddress, userAgent, expiresAt); err != nil {
		return fmt.Errorf("admin_session_insert_failed: %w", err)
	}
	return nil
}

// GetSessionByHash loads a session by its token hash.
func (s *Store) GetSessionByHash(ctx context.Context, tokenHash string) (*Session, error) {
	const query = `
		SELECT id, admin_user_id, token_hash, ip_address, user_agent, expires_at, last_activity_at, created_at
		FROM admin_sessions WHERE token_hash = $1`

	sess := &Session{}
	err := s.db.QueryRow(ctx, query, tokenHash).Scan(
		&sess.ID, &sess.AdminUserID, &sess.TokenHash, &sess.IPAddress, &sess.UserAgent,
		&sess.ExpiresAt, &sess.LastActivityAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.AuthFailure("Invalid or expired session")
		}
		return nil, fmt.Errorf("admin_session_lookup_failed: %w", err)
	}
	return sess, nil
}

// ExtendSession slides the expiry window and stamps activity.
func (s *Store) ExtendSession(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	const query = `UPDATE admin_sessions SET expires_at = $2, last_activity_at = NOW() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, expiresAt); err != nil {
		return fmt.Errorf("admin_session_extend_failed: %w", err)
	}
	return nil
}

// DeleteSession removes one session (logout).
func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM admin_sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("admin_session_delete_failed: %w", err)
	}
	return nil
}

// DeleteExpiredSessions clears stale rows.
func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM admin_sessions WHERE expires_at < NOW()`); err != nil {
		return fmt.Errorf("admin_session_cleanup_failed: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
