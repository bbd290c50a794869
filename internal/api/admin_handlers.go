package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gatehouse-dev/gatehouse/internal/admin"
	"github.com/gatehouse-dev/gatehouse/internal/api/helpers"
	"github.com/gatehouse-dev/gatehouse/internal/api/middleware"
	"github.com/gatehouse-dev/gatehouse/internal/apperr"
)

// AdminHandler serves admin authentication and admin-account CRUD.
type AdminHandler struct {
	svc *admin.Service
}

func NewAdminHandler(svc *admin.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func actorID(r *http.Request) *uuid.UUID {
	if u := middleware.AdminUserFrom(r.Context()); u != nil {
		id := u.ID
		return &id
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid id")
	}
	return id, nil
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/admin/login.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		helpers.RespondError(w, apperr.Validation("email and password are required"))
		return
	}

	u, sessionToken, err := h.svc.Login(r.Context(), req.Email, req.Password, helpers.GetRealIP(r), r.UserAgent())
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]any{
		"admin":        u,
		"sessionToken": sessionToken,
	})
}

// Logout handles POST /api/admin/logout.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get(middleware.SessionHeader)
	if err := h.svc.Logout(r.Context(), tokenString, actorID(r)); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "Logged out")
}

// Me handles GET /api/admin/me.
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	helpers.RespondJSON(w, http.StatusOK, middleware.AdminUserFrom(r.Context()))
}

// List handles GET /api/admin/admins.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.svc.List(r.Context())
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, admins)
}

// Create handles POST /api/admin/admins.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req admin.CreateInput
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}

	u, err := h.svc.Create(r.Context(), req, actorID(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusCreated, u)
}

// Get handles GET /api/admin/admins/{adminID}.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "adminID")
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, u)
}

// Update handles PATCH /api/admin/admins/{adminID}.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "adminID")
	if err != nil {
		helpers.RespondError(w, err)
		return
	}

	var req admin.UpdateInput
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}

	u, err := h.svc.Update(r.Context(), id, req, actorID(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, u)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword handles POST /api/admin/admins/{adminID}/password.
func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "adminID")
	if err != nil {
		helpers.RespondError(w, err)
		return
	}

	var req changePasswordRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		helpers.RespondError(w, apperr.Validation("currentPassword and newPassword are required"))
		return
	}

	if err := h.svc.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword, actorID(r)); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "Password changed")
}

// Delete handles DELETE /api/admin/admins/{adminID}.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "adminID")
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id, actorID(r)); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "Admin deleted")
}
