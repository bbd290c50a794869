// Package user reads and writes the per-project user tables. Every query
// targets a dynamic table name, so each one passes through the identifier
// sanitizer before interpolation.
package user

import (
	"time"

	"github.com/google/uuid"
)

// User statuses. Deleted rows are tombstones, never removed.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"
)

// User is one end-user row in a project's user table.
type User struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	EmailVerified       bool       `json:"emailVerified"`
	Phone               *string    `json:"phone"`
	PhoneVerified       bool       `json:"phoneVerified"`
	PasswordHash        *string    `json:"-"`
	OAuthProvider       *string    `json:"oauthProvider"`
	OAuthProviderUserID *string    `json:"oauthProviderUserId"`
	OAuthRawUserData    *string    `json:"-"`
	DisplayName         *string    `json:"displayName"`
	AvatarURL           *string    `json:"avatarUrl"`
	Metadata            *string    `json:"metadata"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	LastLoginAt         *time.Time `json:"lastLoginAt"`
}

// IsActive reports whether the user may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// CreateParams carries the fields settable at creation. PasswordHash is nil
// for OAuth-only users.
type CreateParams struct {
	Email               string
	PasswordHash        *string
	DisplayName         *string
	AvatarURL           *string
	OAuthProvider       *string
	OAuthProviderUserID *string
	OAuthRawUserData    *string
	EmailVerified       bool
}

// UpdateParams carries admin-editable fields; nil leaves a field unchanged.
type UpdateParams struct {
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
	Phone       *string `json:"phone"`
	Metadata    *string `json:"metadata"`
	Status      *string `json:"status"`
}
