package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/audit"
	"github.com/gatehouse-dev/gatehouse/internal/project"
	"github.com/gatehouse-dev/gatehouse/internal/ratelimit"
	"github.com/gatehouse-dev/gatehouse/internal/token"
	"github.com/gatehouse-dev/gatehouse/internal/user"
)

// TokenMinter issues the access+refresh pair once the callback resolved a
// user. The auth engine provides the implementation.
type TokenMinter interface {
	MintFor(ctx context.Context, p *project.Project, u *user.User, meta token.RequestMeta) (accessToken, refreshToken string, err error)
}

// Engine runs the authorization-code flow for all configured providers.
type Engine struct {
	configs  *ConfigStore
	projects *project.Store
	users    *user.Store
	minter   TokenMinter
	limiter  *ratelimit.Engine
	audit    audit.Logger
	client   *http.Client
	log      *slog.Logger
}

func NewEngine(
	configs *ConfigStore,
	projects *project.Store,
	users *user.Store,
	minter TokenMinter,
	limiter *ratelimit.Engine,
	auditLog audit.Logger,
	client *http.Client,
	log *slog.Logger,
) *Engine {
	return &Engine{
		configs:  configs,
		projects: projects,
		users:    users,
		minter:   minter,
		limiter:  limiter,
		audit:    auditLog,
		client:   client,
		log:      log,
	}
}

// AuthorizationURL builds the provider redirect. When the caller supplies
// no state, a random UUID is generated and returned for the caller to keep.
func (e *Engine) AuthorizationURL(ctx context.Context, projectID, providerName, redirectURI, state string) (authURL, outState string, err error) {
	p, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return "", "", err
	}
	if !p.Enabled {
		return "", "", apperr.AuthFailure("Project is disabled")
	}
	if !p.RedirectAllowed(redirectURI) {
		return "", "", apperr.Validation("redirect_uri is not in the project allowlist")
	}

	cfg, err := e.configs.Get(ctx, projectID, providerName)
	if err != nil {
		return "", "", err
	}
	if !cfg.Enabled {
		return "", "", apperr.NotFound("OAuth provider")
	}

	if state == "" {
		state = uuid.NewString()
	}

	q := url.Values{}
	q.Set("client_id", cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(cfg.Scopes, " "))
	q.Set("state", state)

	sep := "?"
	if strings.Contains(cfg.AuthorizationURL, "?") {
		sep = "&"
	}
	return cfg.AuthorizationURL + sep + q.Encode(), state, nil
}

// CallbackResult is the outcome of a completed code exchange.
type CallbackResult struct {
	User         *user.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

// Callback exchanges the authorization code, fetches the provider's user
// info and resolves it to a project user, creating one when the identity is
// new.
func (e *Engine) Callback(ctx context.Context, projectID, providerName, code, redirectURI string, meta token.RequestMeta) (*CallbackResult, error) {
	if err := e.limiter.Check(ctx, projectID, ratelimit.AttemptOAuth, meta.IPAddress, ""); err != nil {
		return nil, err
	}

	p, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.Enabled {
		return nil, apperr.AuthFailure("Project is disabled")
	}
	if !p.RedirectAllowed(redirectURI) {
		return nil, apperr.Validation("redirect_uri is not in the project allowlist")
	}

	cfg, err := e.configs.Get(ctx, projectID, providerName)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, apperr.NotFound("OAuth provider")
	}

	providerToken, err := e.exchangeCode(ctx, cfg, code, redirectURI)
	if err != nil {
		e.recordAttempt(ctx, projectID, meta, false, err.Error(), nil)
		return nil, err
	}

	info, raw, err := e.fetchUserInfo(ctx, cfg, providerToken)
	if err != nil {
		e.recordAttempt(ctx, projectID, meta, false, err.Error(), nil)
		return nil, err
	}

	u, err := e.resolveUser(ctx, p, cfg.ProviderName, info, raw)
	if err != nil {
		e.recordAttempt(ctx, projectID, meta, false, err.Error(), nil)
		return nil, err
	}

	access, refresh, err := e.minter.MintFor(ctx, p, u, meta)
	if err != nil {
		return nil, err
	}

	if err := e.users.UpdateLastLogin(ctx, p.UserTableName, u.ID); err != nil {
		e.log.Error("last_login_update_failed", "project_id", projectID, "user_id", u.ID, "error", err)
	}

	e.recordAttempt(ctx, projectID, meta, true, "", &u.ID)
	e.audit.Log(ctx, audit.Event{
		ProjectID: &p.ID,
		EventType: "oauth_login",
		UserID:    &u.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		EventData: map[string]any{"provider": cfg.ProviderName},
	})

	return &CallbackResult{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

func (e *Engine) recordAttempt(ctx context.Context, projectID string, meta token.RequestMeta, success bool, reason string, userID *uuid.UUID) {
	err := e.limiter.Record(ctx, ratelimit.Attempt{
		ProjectID:     projectID,
		AttemptType:   ratelimit.AttemptOAuth,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		Success:       success,
		FailureReason: reason,
		UserID:        userID,
	})
	if err != nil {
		e.log.Error("attempt_record_failed", "project_id", projectID, "type", "oauth", "error", err)
	}
}

// exchangeCode POSTs the authorization code to the provider's token URL.
func (e *Engine) exchangeCode(ctx context.Context, cfg *Config, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("redirect_uri", redirectURI)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("token_request_build_failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", apperr.BadRequest("OAuth token exchange failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperr.BadRequest("OAuth token exchange failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.log.Warn("oauth_token_exchange_rejected", "provider", cfg.ProviderName, "status", resp.StatusCode)
		return "", apperr.BadRequest("OAuth token exchange failed")
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.AccessToken == "" {
		return "", apperr.BadRequest("OAuth token exchange failed")
	}
	return payload.AccessToken, nil
}

// userInfo is the provider-independent projection of the userinfo response.
type userInfo struct {
	Email          string
	DisplayName    string
	ProviderUserID string
	AvatarURL      string
}

// fetchUserInfo GETs the userinfo endpoint and projects the fields the
// engine needs, tolerating each provider's naming.
func (e *Engine) fetchUserInfo(ctx context.Context, cfg *Config, accessToken string) (*userInfo, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.UserInfoURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("userinfo_request_build_failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", apperr.BadRequest("Failed to fetch user info from provider")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, "", apperr.BadRequest("Failed to fetch user info from provider")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.log.Warn("oauth_userinfo_rejected", "provider", cfg.ProviderName, "status", resp.StatusCode)
		return nil, "", apperr.BadRequest("Failed to fetch user info from provider")
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, "", apperr.BadRequest("Failed to fetch user info from provider")
	}

	info := &userInfo{
		Email:          firstString(fields, "email", "mail"),
		DisplayName:    firstString(fields, "name", "displayName", "login"),
		ProviderUserID: firstString(fields, "id", "sub", "oid"),
		AvatarURL:      firstString(fields, "avatar_url", "picture"),
	}
	if info.Email == "" {
		return nil, "", apperr.BadRequest("Email not provided by OAuth provider")
	}
	if info.ProviderUserID == "" {
		return nil, "", apperr.BadRequest("Failed to fetch user info from provider")
	}
	return info, string(body), nil
}

// firstString returns the first present key, rendered as a string. Numeric
// ids (GitHub) are formatted without a fractional part.
func firstString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

// resolveUser maps a provider identity onto a project user: an existing
// OAuth user wins, a matching email without the OAuth link is refused
// (account linking is a separate concern), and everything else creates a
// fresh passwordless user.
func (e *Engine) resolveUser(ctx context.Context, p *project.Project, providerName string, info *userInfo, raw string) (*user.User, error) {
	u, err := e.users.GetByOAuth(ctx, p.UserTableName, providerName, info.ProviderUserID)
	if err == nil {
		return u, nil
	}
	if ae := apperr.As(err); ae == nil || ae.Status != http.StatusNotFound {
		return nil, err
	}

	if _, err := e.users.GetByEmail(ctx, p.UserTableName, info.Email); err == nil {
		return nil, apperr.BadRequest("Email already registered")
	} else if ae := apperr.As(err); ae == nil || ae.Status != http.StatusNotFound {
		return nil, err
	}

	params := user.CreateParams{
		Email:               info.Email,
		EmailVerified:       true,
		OAuthProvider:       &providerName,
		OAuthProviderUserID: &info.ProviderUserID,
		OAuthRawUserData:    &raw,
	}
	if info.DisplayName != "" {
		params.DisplayName = &info.DisplayName
	}
	if info.AvatarURL != "" {
		params.AvatarURL = &info.AvatarURL
	}

	return e.users.Create(ctx, p.UserTableName, params)
}
