package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-dev/gatehouse/internal/api/helpers"
	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/auth"
	"github.com/gatehouse-dev/gatehouse/internal/token"
	"github.com/gatehouse-dev/gatehouse/internal/user"
)

// AuthHandler serves the end-user /api/auth/{projectID} surface.
type AuthHandler struct {
	engine *auth.Engine
}

func NewAuthHandler(engine *auth.Engine) *AuthHandler {
	return &AuthHandler{engine: engine}
}

func requestMeta(r *http.Request) token.RequestMeta {
	return token.RequestMeta{
		DeviceName: r.Header.Get("X-Device-Name"),
		UserAgent:  r.UserAgent(),
		IPAddress:  helpers.GetRealIP(r),
	}
}

func projectIDParam(r *http.Request) string {
	return chi.URLParam(r, "projectID")
}

type authResponse struct {
	User         *user.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

// Register handles POST /api/auth/{projectID}/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		helpers.RespondError(w, apperr.Validation("email and password are required"))
		return
	}

	u, pair, err := h.engine.Register(r.Context(), projectIDParam(r), req, requestMeta(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusCreated, authResponse{
		User: u, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/{projectID}/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		helpers.RespondError(w, apperr.Validation("email and password are required"))
		return
	}

	u, pair, err := h.engine.Login(r.Context(), projectIDParam(r), req.Email, req.Password, requestMeta(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, authResponse{
		User: u, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /api/auth/{projectID}/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}
	if req.RefreshToken == "" {
		helpers.RespondError(w, apperr.Validation("refreshToken is required"))
		return
	}

	pair, err := h.engine.Refresh(r.Context(), projectIDParam(r), req.RefreshToken, requestMeta(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, pair)
}

// Logout handles POST /api/auth/{projectID}/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}
	if req.RefreshToken == "" {
		helpers.RespondError(w, apperr.Validation("refreshToken is required"))
		return
	}

	if err := h.engine.Logout(r.Context(), projectIDParam(r), req.RefreshToken, requestMeta(r)); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "Logged out")
}

// Me handles GET /api/auth/{projectID}/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	bearer := r.Header.Get("Authorization")
	if !strings.HasPrefix(bearer, "Bearer ") {
		helpers.RespondError(w, apperr.AuthFailure("Bearer token required"))
		return
	}

	u, err := h.engine.Authenticate(r.Context(), projectIDParam(r), strings.TrimPrefix(bearer, "Bearer "))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, u)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword handles POST /api/auth/{projectID}/forgot-password. The
// response is identical whether or not the email exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}
	if req.Email == "" {
		helpers.RespondError(w, apperr.Validation("email is required"))
		return
	}

	if err := h.engine.ForgotPassword(r.Context(), projectIDParam(r), req.Email, requestMeta(r)); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "If the email exists, a reset link has been sent")
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword handles POST /api/auth/{projectID}/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		helpers.RespondError(w, apperr.Validation("token and newPassword are required"))
		return
	}

	if err := h.engine.ResetPassword(r.Context(), projectIDParam(r), req.Token, req.NewPassword, requestMeta(r)); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "Password has been reset")
}

// ConfirmEmail handles GET /api/auth/{projectID}/confirm-email?token=…
func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		helpers.RespondError(w, apperr.Validation("token is required"))
		return
	}

	if err := h.engine.ConfirmEmail(r.Context(), projectIDParam(r), tokenString, requestMeta(r)); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "Email confirmed")
}
