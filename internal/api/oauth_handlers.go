package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-dev/gatehouse/internal/api/helpers"
	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/oauth"
)

// OAuthHandler serves the end-user OAuth endpoints.
type OAuthHandler struct {
	engine *oauth.Engine
}

func NewOAuthHandler(engine *oauth.Engine) *OAuthHandler {
	return &OAuthHandler{engine: engine}
}

// Authorize handles GET /api/auth/{projectID}/oauth/{provider}. It answers
// with the provider redirect URL and the state instead of issuing a 302, so
// SPA callers can drive the navigation themselves.
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	redirectURI := r.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		helpers.RespondError(w, apperr.Validation("redirect_uri is required"))
		return
	}

	authURL, state, err := h.engine.AuthorizationURL(r.Context(),
		projectIDParam(r), chi.URLParam(r, "provider"), redirectURI, r.URL.Query().Get("state"))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}

	helpers.RespondJSON(w, http.StatusOK, map[string]string{
		"authorizationUrl": authURL,
		"state":            state,
	})
}

// Callback handles GET /api/auth/{projectID}/oauth/{provider}/callback.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		helpers.RespondError(w, apperr.Validation("code is required"))
		return
	}

	result, err := h.engine.Callback(r.Context(),
		projectIDParam(r), chi.URLParam(r, "provider"), code, r.URL.Query().Get("redirect_uri"), requestMeta(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, result)
}
