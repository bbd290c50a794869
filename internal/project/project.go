// Package project owns tenants: the project rows, their lifecycle, and the
// dynamic per-project user tables (the tenant-table manager).
package project

import (
	"time"
)

// Environments a project can run in.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Project is one tenant: an isolated identity realm with its own users,
// signing key and policies.
type Project struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Description            string    `json:"description"`
	Environment            string    `json:"environment"`
	SigningSecret          string    `json:"-"` // base64-encoded 32 bytes, never serialized
	SigningAlgorithm       string    `json:"signingAlgorithm"`
	AccessTokenTTLSeconds  int       `json:"accessTokenTtlSeconds"`
	RefreshTokenTTLSeconds int       `json:"refreshTokenTtlSeconds"`
	Enabled                bool      `json:"enabled"`
	UserTableName          string    `json:"userTableName"`
	SiteURL                string    `json:"siteUrl"`
	RedirectAllowlist      []string  `json:"redirectAllowlist"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// AccessTokenTTL returns the access token lifetime as a duration.
func (p *Project) AccessTokenTTL() time.Duration {
	return time.Duration(p.AccessTokenTTLSeconds) * time.Second
}

// RefreshTokenTTL returns the refresh token lifetime as a duration.
func (p *Project) RefreshTokenTTL() time.Duration {
	return time.Duration(p.RefreshTokenTTLSeconds) * time.Second
}

// RedirectAllowed reports whether a redirect URL is in the project's
// allowlist. An empty allowlist permits nothing.
func (p *Project) RedirectAllowed(url string) bool {
	for _, allowed := range p.RedirectAllowlist {
		if allowed == url {
			return true
		}
	}
	return false
}

// CreateInput is the admin-supplied shape for a new project.
type CreateInput struct {
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	Environment            string   `json:"environment"`
	AccessTokenTTLSeconds  int      `json:"accessTokenTtlSeconds"`
	RefreshTokenTTLSeconds int      `json:"refreshTokenTtlSeconds"`
	SiteURL                string   `json:"siteUrl"`
	RedirectAllowlist      []string `json:"redirectAllowlist"`
}

// UpdateInput carries optional mutations; nil fields are left unchanged.
type UpdateInput struct {
	Name                   *string   `json:"name"`
	Description            *string   `json:"description"`
	AccessTokenTTLSeconds  *int      `json:"accessTokenTtlSeconds"`
	RefreshTokenTTLSeconds *int      `json:"refreshTokenTtlSeconds"`
	Enabled                *bool     `json:"enabled"`
	SiteURL                *string   `json:"siteUrl"`
	RedirectAllowlist      *[]string `json:"redirectAllowlist"`
	RotateSigningSecret    bool      `json:"rotateSigningSecret"`
}
