package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-dev/gatehouse/internal/api/helpers"
	"github.com/gatehouse-dev/gatehouse/internal/mailer"
	"github.com/gatehouse-dev/gatehouse/internal/oauth"
	"github.com/gatehouse-dev/gatehouse/internal/ratelimit"
)

// ConfigHandler serves the per-project configuration surfaces: OAuth
// providers, rate limit rules, and email providers/templates.
type ConfigHandler struct {
	oauthConfigs *oauth.ConfigStore
	rules        *ratelimit.RuleStore
	providers    *mailer.ProviderStore
	templates    *mailer.TemplateStore
}

func NewConfigHandler(
	oauthConfigs *oauth.ConfigStore,
	rules *ratelimit.RuleStore,
	providers *mailer.ProviderStore,
	templates *mailer.TemplateStore,
) *ConfigHandler {
	return &ConfigHandler{
		oauthConfigs: oauthConfigs,
		rules:        rules,
		providers:    providers,
		templates:    templates,
	}
}

// ListOAuthConfigs handles GET /api/admin/projects/{projectID}/oauth.
func (h *ConfigHandler) ListOAuthConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.oauthConfigs.List(r.Context(), projectIDParam(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, configs)
}

// UpsertOAuthConfig handles PUT /api/admin/projects/{projectID}/oauth.
func (h *ConfigHandler) UpsertOAuthConfig(w http.ResponseWriter, r *http.Request) {
	var req oauth.ConfigInput
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}

	cfg, err := h.oauthConfigs.Upsert(r.Context(), projectIDParam(r), req)
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, cfg)
}

// DeleteOAuthConfig handles DELETE /api/admin/projects/{projectID}/oauth/{provider}.
func (h *ConfigHandler) DeleteOAuthConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.oauthConfigs.Delete(r.Context(), projectIDParam(r), chi.URLParam(r, "provider")); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "OAuth provider removed")
}

// ListRules handles GET /api/admin/projects/{projectID}/rate-limits.
func (h *ConfigHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context(), projectIDParam(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, rules)
}

// UpsertRule handles PUT /api/admin/projects/{projectID}/rate-limits.
func (h *ConfigHandler) UpsertRule(w http.ResponseWriter, r *http.Request) {
	var req ratelimit.RuleInput
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}

	rule, err := h.rules.Upsert(r.Context(), projectIDParam(r), req)
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, rule)
}

// DeleteRule handles DELETE /api/admin/projects/{projectID}/rate-limits/{ruleID}.
func (h *ConfigHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "ruleID")
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	if err := h.rules.Delete(r.Context(), projectIDParam(r), id); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "Rule deleted")
}

// ListEmailProviders handles GET /api/admin/email/providers.
func (h *ConfigHandler) ListEmailProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.providers.List(r.Context())
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, providers)
}

// CreateEmailProvider handles POST /api/admin/email/providers.
func (h *ConfigHandler) CreateEmailProvider(w http.ResponseWriter, r *http.Request) {
	var req mailer.ProviderInput
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}

	p, err := h.providers.Insert(r.Context(), req)
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusCreated, p)
}

// UpdateEmailProvider handles PUT /api/admin/email/providers/{providerID}.
func (h *ConfigHandler) UpdateEmailProvider(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "providerID")
	if err != nil {
		helpers.RespondError(w, err)
		return
	}

	var req mailer.ProviderInput
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}

	p, err := h.providers.Update(r.Context(), id, req)
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, p)
}

// DeleteEmailProvider handles DELETE /api/admin/email/providers/{providerID}.
func (h *ConfigHandler) DeleteEmailProvider(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "providerID")
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	if err := h.providers.Delete(r.Context(), id); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "Provider deleted")
}

// ListTemplates handles GET /api/admin/projects/{projectID}/email/templates
// and GET /api/admin/email/templates (system defaults).
func (h *ConfigHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List(r.Context(), projectIDParam(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, templates)
}

// UpsertTemplate handles PUT /api/admin/projects/{projectID}/email/templates
// and PUT /api/admin/email/templates.
func (h *ConfigHandler) UpsertTemplate(w http.ResponseWriter, r *http.Request) {
	var req mailer.TemplateInput
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}

	t, err := h.templates.Upsert(r.Context(), projectIDParam(r), req)
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, t)
}

// DeleteTemplate handles DELETE /api/admin/projects/{projectID}/email/templates/{templateType}.
func (h *ConfigHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.Delete(r.Context(), projectIDParam(r), chi.URLParam(r, "templateType")); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "Template deleted")
}
