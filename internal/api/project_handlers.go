package api

import (
	"net/http"
	"strconv"

	"github.com/gatehouse-dev/gatehouse/internal/api/helpers"
	"github.com/gatehouse-dev/gatehouse/internal/auth"
	"github.com/gatehouse-dev/gatehouse/internal/project"
	"github.com/gatehouse-dev/gatehouse/internal/user"
)

// ProjectHandler serves project CRUD and per-project user administration.
type ProjectHandler struct {
	projects *project.Service
	users    *user.Store
	engine   *auth.Engine
}

func NewProjectHandler(projects *project.Service, users *user.Store, engine *auth.Engine) *ProjectHandler {
	return &ProjectHandler{projects: projects, users: users, engine: engine}
}

// List handles GET /api/admin/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, projects)
}

// Create handles POST /api/admin/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req project.CreateInput
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}

	p, err := h.projects.Create(r.Context(), req, actorID(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/admin/projects/{projectID}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), projectIDParam(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, p)
}

// Update handles PATCH /api/admin/projects/{projectID}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req project.UpdateInput
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}

	p, err := h.projects.Update(r.Context(), projectIDParam(r), req, actorID(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/admin/projects/{projectID}.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.Delete(r.Context(), projectIDParam(r), actorID(r)); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "Project deleted")
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

// ListUsers handles GET /api/admin/projects/{projectID}/users.
func (h *ProjectHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), projectIDParam(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}

	limit, offset := pagination(r)
	users, err := h.users.List(r.Context(), p.UserTableName, limit, offset)
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, users)
}

// GetUser handles GET /api/admin/projects/{projectID}/users/{userID}.
func (h *ProjectHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), projectIDParam(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	id, err := uuidParam(r, "userID")
	if err != nil {
		helpers.RespondError(w, err)
		return
	}

	u, err := h.users.GetByID(r.Context(), p.UserTableName, id)
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, u)
}

// UpdateUser handles PATCH /api/admin/projects/{projectID}/users/{userID}.
func (h *ProjectHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), projectIDParam(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	id, err := uuidParam(r, "userID")
	if err != nil {
		helpers.RespondError(w, err)
		return
	}

	var req user.UpdateParams
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, err)
		return
	}

	u, err := h.users.Update(r.Context(), p.UserTableName, id, req)
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /api/admin/projects/{projectID}/users/{userID}.
// The row is tombstoned, not removed, and every refresh token is revoked.
func (h *ProjectHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), projectIDParam(r))
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	id, err := uuidParam(r, "userID")
	if err != nil {
		helpers.RespondError(w, err)
		return
	}

	if err := h.users.SoftDelete(r.Context(), p.UserTableName, id); err != nil {
		helpers.RespondError(w, err)
		return
	}
	if err := h.engine.RevokeAllUserTokens(r.Context(), p.ID, id, actorID(r)); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "User deleted")
}

// RevokeUserTokens handles POST /api/admin/projects/{projectID}/users/{userID}/revoke-tokens.
func (h *ProjectHandler) RevokeUserTokens(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "userID")
	if err != nil {
		helpers.RespondError(w, err)
		return
	}

	if err := h.engine.RevokeAllUserTokens(r.Context(), projectIDParam(r), id, actorID(r)); err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondMessage(w, http.StatusOK, "Tokens revoked")
}
