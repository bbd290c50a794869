package project

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/audit"
	"github.com/gatehouse-dev/gatehouse/internal/crypto"
)

// Token TTL bounds and defaults, in seconds.
const (
	MinAccessTokenTTL      = 60
	MaxAccessTokenTTL      = 86400
	DefaultAccessTokenTTL  = 3600
	MinRefreshTokenTTL     = 3600
	MaxRefreshTokenTTL     = 2592000
	DefaultRefreshTokenTTL = 604800
)

// Service runs the project lifecycle: slug derivation, signing secret
// generation, the dynamic user table and the default rate limit rules.
type Service struct {
	store *Store
	audit audit.Logger
	log   *slog.Logger
}

func NewService(store *Store, auditLog audit.Logger, log *slog.Logger) *Service {
	return &Service{store: store, audit: auditLog, log: log}
}

// Create provisions a new project. The row insert, the user table DDL and
// the default rules cannot share a transaction, so any failure after the
// insert rolls back by deleting the row again.
func (s *Service) Create(ctx context.Context, in CreateInput, adminID *uuid.UUID) (*Project, error) {
	if !ValidateName(in.Name) {
		return nil, apperr.Validation("Project name must be 3-50 characters of letters, digits, spaces, hyphens or underscores")
	}

	env := in.Environment
	if env == "" {
		env = EnvProduction
	}
	if env != EnvDevelopment && env != EnvStaging && env != EnvProduction {
		return nil, apperr.Validation("Environment must be development, staging or production")
	}

	id := GenerateProjectID(in.Name)
	if id == "" {
		return nil, apperr.Validation("Project name must contain at least one letter or digit")
	}

	accessTTL := in.AccessTokenTTLSeconds
	if accessTTL == 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := in.RefreshTokenTTLSeconds
	if refreshTTL == 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	if err := validateTTLs(accessTTL, refreshTTL); err != nil {
		return nil, err
	}

	if err := validateSiteURL(in.SiteURL); err != nil {
		return nil, err
	}

	secret, err := crypto.GenerateSigningSecret()
	if err != nil {
		return nil, fmt.Errorf("signing_secret_generation_failed: %w", err)
	}

	p := &Project{
		ID:                     id,
		Name:                   in.Name,
		Description:            in.Description,
		Environment:            env,
		SigningSecret:          secret,
		SigningAlgorithm:       "HS256",
		AccessTokenTTLSeconds:  accessTTL,
		RefreshTokenTTLSeconds: refreshTTL,
		Enabled:                true,
		SiteURL:                in.SiteURL,
		RedirectAllowlist:      in.RedirectAllowlist,
	}
	if p.RedirectAllowlist == nil {
		p.RedirectAllowlist = []string{}
	}

	// The row is inserted first so the id is reserved, then the user table
	// is created and the table name written back.
	if err := s.store.Insert(ctx, p); err != nil {
		return nil, err
	}

	p.UserTableName = p.ID + "_users"
	if err := s.store.CreateUserTable(ctx, p.UserTableName); err != nil {
		s.rollbackCreate(ctx, p)
		return nil, err
	}
	if err := s.store.Update(ctx, p); err != nil {
		s.rollbackCreate(ctx, p)
		return nil, err
	}
	if err := s.store.InsertDefaultRateLimitRules(ctx, p.ID); err != nil {
		s.rollbackCreate(ctx, p)
		return nil, err
	}

	created, err := s.store.Get(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Event{
		ProjectID:   &p.ID,
		EventType:   "project_created",
		AdminUserID: adminID,
		EventData:   map[string]any{"name": p.Name, "environment": p.Environment},
	})
	return created, nil
}

func (s *Service) rollbackCreate(ctx context.Context, p *Project) {
	if err := s.store.DropUserTable(ctx, p.UserTableName); err != nil {
		s.log.Error("project_create_rollback_table_failed", "project_id", p.ID, "error", err)
	}
	if err := s.store.Delete(ctx, p.ID); err != nil {
		s.log.Error("project_create_rollback_row_failed", "project_id", p.ID, "error", err)
	}
}

// Get loads one project.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	return s.store.Get(ctx, id)
}

// List returns all projects.
func (s *Service) List(ctx context.Context) ([]*Project, error) {
	return s.store.List(ctx)
}

// Update applies the non-nil fields of in. The project id, environment and
// user table name are immutable. RotateSigningSecret replaces the signing
// secret, invalidating all outstanding access tokens for the project.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, adminID *uuid.UUID) (*Project, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := map[string]any{}
	if in.Name != nil {
		if !ValidateName(*in.Name) {
			return nil, apperr.Validation("Project name must be 3-50 characters of letters, digits, spaces, hyphens or underscores")
		}
		p.Name = *in.Name
		changed["name"] = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
		changed["description"] = true
	}
	if in.AccessTokenTTLSeconds != nil {
		p.AccessTokenTTLSeconds = *in.AccessTokenTTLSeconds
		changed["accessTokenTtlSeconds"] = *in.AccessTokenTTLSeconds
	}
	if in.RefreshTokenTTLSeconds != nil {
		p.RefreshTokenTTLSeconds = *in.RefreshTokenTTLSeconds
		changed["refreshTokenTtlSeconds"] = *in.RefreshTokenTTLSeconds
	}
	if err := validateTTLs(p.AccessTokenTTLSeconds, p.RefreshTokenTTLSeconds); err != nil {
		return nil, err
	}
	if in.Enabled != nil {
		p.Enabled = *in.Enabled
		changed["enabled"] = *in.Enabled
	}
	if in.SiteURL != nil {
		if err := validateSiteURL(*in.SiteURL); err != nil {
			return nil, err
		}
		p.SiteURL = *in.SiteURL
		changed["siteUrl"] = *in.SiteURL
	}
	if in.RedirectAllowlist != nil {
		p.RedirectAllowlist = *in.RedirectAllowlist
		changed["redirectAllowlist"] = *in.RedirectAllowlist
	}
	if in.RotateSigningSecret {
		secret, err := crypto.GenerateSigningSecret()
		if err != nil {
			return nil, fmt.Errorf("signing_secret_generation_failed: %w", err)
		}
		p.SigningSecret = secret
		changed["signingSecretRotated"] = true
	}

	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Event{
		ProjectID:   &p.ID,
		EventType:   "project_updated",
		AdminUserID: adminID,
		EventData:   changed,
	})
	return s.store.Get(ctx, id)
}

// Delete removes the project, its fixed-table rows (via FK cascade) and the
// dynamic user table.
func (s *Service) Delete(ctx context.Context, id string, adminID *uuid.UUID) error {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.store.DropUserTable(ctx, p.UserTableName); err != nil {
		// The project row is gone; the orphaned table needs manual cleanup.
		s.log.Error("project_user_table_drop_failed", "project_id", id, "table", p.UserTableName, "error", err)
	}

	s.audit.Log(ctx, audit.Event{
		ProjectID:   &id,
		EventType:   "project_deleted",
		AdminUserID: adminID,
		EventData:   map[string]any{"name": p.Name},
	})
	return nil
}

func validateSiteURL(siteURL string) error {
	if siteURL == "" {
		return nil
	}
	u, err := url.Parse(siteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Validation("siteUrl must be an absolute http(s) URL")
	}
	return nil
}

func validateTTLs(access, refresh int) error {
	if access < MinAccessTokenTTL || access > MaxAccessTokenTTL {
		return apperr.Validation(fmt.Sprintf("accessTokenTtlSeconds must be between %d and %d", MinAccessTokenTTL, MaxAccessTokenTTL))
	}
	if refresh < MinRefreshTokenTTL || refresh > MaxRefreshTokenTTL {
		return apperr.Validation(fmt.Sprintf("refreshTokenTtlSeconds must be between %d and %d", MinRefreshTokenTTL, MaxRefreshTokenTTL))
	}
	return nil
}
