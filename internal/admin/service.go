package admin

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/audit"
	"github.com/gatehouse-dev/gatehouse/internal/auth"
	"github.com/gatehouse-dev/gatehouse/internal/token"
)

// Service implements admin login, session verification and account
// management.
type Service struct {
	store *Store
	audit audit.Logger
	log   *slog.Logger
}

func NewService(store *Store, auditLog audit.Logger, log *slog.Logger) *Service {
	return &Service{store: store, audit: auditLog, log: log}
}

// Login verifies credentials and opens a session. The returned plaintext
// token exists only in this response.
func (s *Service) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*User, string, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", apperr.AuthFailure("Invalid credentials")
	}
	if !u.Enabled {
		return nil, "", apperr.AuthFailure("Account is disabled")
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		s.audit.Log(ctx, audit.Event{
			EventType:   "admin_login",
			EventStatus: audit.StatusFailure,
			AdminUserID: &u.ID,
			IPAddress:   ipAddress,
			UserAgent:   userAgent,
		})
		return nil, "", apperr.AuthFailure("Invalid credentials")
	}

	plaintext, err := token.GenerateSecureToken(token.RefreshTokenLength)
	if err != nil {
		return nil, "", err
	}
	expiresAt := time.Now().Add(SessionTTL)
	if err := s.store.InsertSession(ctx, u.ID, token.HashToken(plaintext), ipAddress, userAgent, expiresAt); err != nil {
		return nil, "", err
	}

	if err := s.store.UpdateLastLogin(ctx, u.ID); err != nil {
		s.log.Error("admin_last_login_update_failed", "admin_id", u.ID, "error", err)
	}

	s.audit.Log(ctx, audit.Event{
		EventType:   "admin_login",
		AdminUserID: &u.ID,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
	})
	return u, plaintext, nil
}

// VerifySession resolves a presented session token to its admin and slides
// the expiry window forward.
func (s *Service) VerifySession(ctx context.Context, plaintext string) (*User, error) {
	sess, err := s.store.GetSessionByHash(ctx, token.HashToken(plaintext))
	if err != nil {
		return nil, err
	}
	if sess.ExpiresAt.Before(time.Now()) {
		return nil, apperr.AuthFailure("Invalid or expired session")
	}

	u, err := s.store.GetByID(ctx, sess.AdminUserID)
	if err != nil {
		return nil, apperr.AuthFailure("Invalid or expired session")
	}
	if !u.Enabled {
		return nil, apperr.AuthFailure("Invalid or expired session")
	}

	if err := s.store.ExtendSession(ctx, sess.ID, time.Now().Add(SessionTTL)); err != nil {
		s.log.Error("admin_session_extend_failed", "session_id", sess.ID, "error", err)
	}
	return u, nil
}

// Logout removes the presented session. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, plaintext string, adminID *uuid.UUID) error {
	if err := s.store.DeleteSession(ctx, token.HashToken(plaintext)); err != nil {
		return err
	}
	s.audit.Log(ctx, audit.Event{EventType: "admin_logout", AdminUserID: adminID})
	return nil
}

// Create provisions a new admin account.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID *uuid.UUID) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := auth.ValidateAdminPassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Insert(ctx, in.Email, hash, in.Name, in.Role)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Event{
		EventType:   "admin_created",
		AdminUserID: actorID,
		EventData:   map[string]any{"email": u.Email, "role": u.Role},
	})
	return u, nil
}

// Get loads one admin account.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.GetByID(ctx, id)
}

// List returns all admin accounts.
func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.store.List(ctx)
}

// Update applies the non-nil fields of in to an admin account.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actorID *uuid.UUID) (*User, error) {
	if in.Role != nil && !ValidRole(*in.Role) {
		return nil, apperr.Validation("Role must be super_admin, admin or viewer")
	}
	u, err := s.store.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, audit.Event{
		EventType:   "admin_updated",
		AdminUserID: actorID,
		EventData:   map[string]any{"targetAdminId": id.String()},
	})
	return u, nil
}

// ChangePassword replaces an admin's password. The caller must present the
// target account's current password regardless of their own role.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string, actorID *uuid.UUID) error {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, currentPassword) {
		return apperr.AuthFailure("Current password is incorrect")
	}
	if err := auth.ValidateAdminPassword(newPassword); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}

	s.audit.Log(ctx, audit.Event{
		EventType:   "admin_password_changed",
		AdminUserID: actorID,
		EventData:   map[string]any{"targetAdminId": id.String()},
	})
	return nil
}

// Delete removes an admin account and cascades its sessions.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	if actorID != nil && *actorID == id {
		return apperr.Validation("Cannot delete your own account")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Log(ctx, audit.Event{
		EventType:   "admin_deleted",
		AdminUserID: actorID,
		EventData:   map[string]any{"targetAdminId": id.String()},
	})
	return nil
}

// Bootstrap creates the first super admin from configuration when no admin
// accounts exist. Called once at startup; a populated table is a no-op.
func (s *Service) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if err := auth.ValidateAdminPassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u, err := s.store.Insert(ctx, email, hash, "Bootstrap Admin", RoleSuperAdmin)
	if err != nil {
		return err
	}

	s.log.Info("bootstrap_admin_created", "email", email)
	s.audit.Log(ctx, audit.Event{
		EventType: "admin_created",
		EventData: map[string]any{"email": u.Email, "role": u.Role, "bootstrap": true},
	})
	return nil
}
