package user

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

// Store runs queries against a project's user table. The table name is
// supplied per call because every project has its own.
type Store struct {
	db storage.DBTX
}

func NewStore(db storage.DBTX) *Store {
	return &Store{db: db}
}

// WithTx returns a copy bound to the given transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

const userCols = `id, email, email_verified, phone, phone_verified, password_hash,
	oauth_provider, oauth_provider_user_id, oauth_raw_user_data,
	display_name, avatar_url, metadata, status, created_at, updated_at, last_login_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.EmailVerified, &u.Phone, &u.PhoneVerified, &u.PasswordHash,
		&u.OAuthProvider, &u.OAuthProviderUserID, &u.OAuthRawUserData,
		&u.DisplayName, &u.AvatarURL, &u.Metadata, &u.Status, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func tableName(table string) (string, error) {
	name := storage.SanitizeIdentifier(table)
	if name == "" {
		return "", apperr.Internal(errors.New("empty user table name after sanitizing"))
	}
	return name, nil
}

// Create inserts a new user, or revives a tombstoned row holding the same
// email: the revived row keeps its id but gets the new credentials, fresh
// oauth fields and verification reset.
func (s *Store) Create(ctx context.Context, table string, p CreateParams) (*User, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}

	revived, err := s.reviveDeleted(ctx, name, p)
	if err != nil {
		return nil, err
	}
	if revived != nil {
		return revived, nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (email, email_verified, password_hash, oauth_provider, oauth_provider_user_id,
			oauth_raw_user_data, display_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userCols, name)

	u, err := scanUser(s.db.QueryRow(ctx, query,
		p.Email, p.EmailVerified, p.PasswordHash, p.OAuthProvider, p.OAuthProviderUserID,
		p.OAuthRawUserData, p.DisplayName, p.AvatarURL,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("user_insert_failed: %w", err)
	}
	return u, nil
}

// reviveDeleted applies the reactivation rule. Returns nil, nil when no
// tombstone exists for the email.
func (s *Store) reviveDeleted(ctx context.Context, name string, p CreateParams) (*User, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'active', email_verified = $2, phone_verified = FALSE,
			password_hash = $3, oauth_provider = $4, oauth_provider_user_id = $5,
			oauth_raw_user_data = $6, display_name = $7, avatar_url = $8, last_login_at = NULL
		WHERE email = $1 AND status = 'deleted'
		RETURNING `+userCols, name)

	u, err := scanUser(s.db.QueryRow(ctx, query,
		p.Email, p.EmailVerified, p.PasswordHash, p.OAuthProvider, p.OAuthProviderUserID,
		p.OAuthRawUserData, p.DisplayName, p.AvatarURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user_revive_failed: %w", err)
	}
	return u, nil
}

// GetByEmail loads a non-deleted user by email.
func (s *Store) GetByEmail(ctx context.Context, table, email string) (*User, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT `+userCols+` FROM %s WHERE email = $1 AND status <> 'deleted'`, name)
	u, err := scanUser(s.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("user_lookup_failed: %w", err)
	}
	return u, nil
}

// GetByID loads a non-deleted user by id.
func (s *Store) GetByID(ctx context.Context, table string, id uuid.UUID) (*User, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT `+userCols+` FROM %s WHERE id = $1 AND status <> 'deleted'`, name)
	u, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("user_lookup_failed: %w", err)
	}
	return u, nil
}

// GetByOAuth loads a non-deleted user by its provider identity.
func (s *Store) GetByOAuth(ctx context.Context, table, provider, providerUserID string) (*User, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT `+userCols+` FROM %s
		WHERE oauth_provider = $1 AND oauth_provider_user_id = $2 AND status <> 'deleted'`, name)
	u, err := scanUser(s.db.QueryRow(ctx, query, provider, providerUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("user_lookup_failed: %w", err)
	}
	return u, nil
}

// List returns users for the admin surface, newest first.
func (s *Store) List(ctx context.Context, table string, limit, offset int) ([]*User, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT `+userCols+` FROM %s ORDER BY created_at DESC LIMIT $1 OFFSET $2`, name)
	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("user_list_failed: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("user_scan_failed: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update applies the non-nil fields of p to a user row.
func (s *Store) Update(ctx context.Context, table string, id uuid.UUID, p UpdateParams) (*User, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	if p.Status != nil {
		switch *p.Status {
		case StatusActive, StatusSuspended, StatusDeleted:
		default:
			return nil, apperr.Validation("Status must be active, suspended or deleted")
		}
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET display_name = COALESCE($2, display_name),
			avatar_url = COALESCE($3, avatar_url),
			phone = COALESCE($4, phone),
			metadata = COALESCE($5, metadata),
			status = COALESCE($6, status)
		WHERE id = $1 AND status <> 'deleted'
		RETURNING `+userCols, name)

	u, err := scanUser(s.db.QueryRow(ctx, query, id, p.DisplayName, p.AvatarURL, p.Phone, p.Metadata, p.Status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("Phone number already in use")
		}
		return nil, fmt.Errorf("user_update_failed: %w", err)
	}
	return u, nil
}

// UpdatePassword replaces the password hash.
func (s *Store) UpdatePassword(ctx context.Context, table string, id uuid.UUID, passwordHash string) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET password_hash = $2 WHERE id = $1 AND status <> 'deleted'`, name)
	tag, err := s.db.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("password_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// SetEmailVerified flips the verification flag.
func (s *Store) SetEmailVerified(ctx context.Context, table string, id uuid.UUID, verified bool) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET email_verified = $2 WHERE id = $1 AND status <> 'deleted'`, name)
	tag, err := s.db.Exec(ctx, query, id, verified)
	if err != nil {
		return fmt.Errorf("email_verified_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// UpdateLastLogin stamps a successful authentication.
func (s *Store) UpdateLastLogin(ctx context.Context, table string, id uuid.UUID) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET last_login_at = NOW() WHERE id = $1`, name)
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("last_login_update_failed: %w", err)
	}
	return nil
}

// SoftDelete tombstones the user. The row stays so the email history and
// audit references survive.
func (s *Store) SoftDelete(ctx context.Context, table string, id uuid.UUID) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET status = 'deleted' WHERE id = $1 AND status <> 'deleted'`, name)
	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("user_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
