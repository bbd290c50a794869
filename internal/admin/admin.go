// Package admin manages the operator accounts and their sessions: bcrypt
// login, opaque bearer tokens with a sliding 30-minute expiry, and the CRUD
// surface for admin users.
package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
)

// Admin roles, from most to least privileged.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleViewer     = "viewer"
)

// SessionTTL is the sliding window; each verified request extends the
// session by this much.
const SessionTTL = 30 * time.Minute

// User is an operator account.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	Enabled      bool       `json:"enabled"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Session is one live admin session; only the token hash is stored.
type Session struct {
	ID             uuid.UUID `json:"id"`
	AdminUserID    uuid.UUID `json:"adminUserId"`
	TokenHash      string    `json:"-"`
	IPAddress      *string   `json:"ipAddress"`
	UserAgent      *string   `json:"userAgent"`
	ExpiresAt      time.Time `json:"expiresAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ValidRole reports whether the role is one of the recognized three.
func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

// CanWrite reports whether the role may mutate resources.
func CanWrite(role string) bool {
	return role == RoleSuperAdmin || role == RoleAdmin
}

// CreateInput is the shape for provisioning a new admin.
type CreateInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Validate checks role and presence; password strength is checked by the
// service so the bootstrap path shares it.
func (in CreateInput) Validate() error {
	if in.Email == "" {
		return apperr.Validation("Email is required")
	}
	if !ValidRole(in.Role) {
		return apperr.Validation("Role must be super_admin, admin or viewer")
	}
	return nil
}

// UpdateInput carries optional admin mutations; nil fields stay unchanged.
type UpdateInput struct {
	Name    *string `json:"name"`
	Role    *string `json:"role"`
	Enabled *bool   `json:"enabled"`
}
