package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gatehouse-dev/gatehouse/internal/api/helpers"
	"github.com/gatehouse-dev/gatehouse/internal/apperr"
	"github.com/gatehouse-dev/gatehouse/internal/audit"
)

// AuditHandler serves the audit-log read API.
type AuditHandler struct {
	logs *audit.DBLogger
}

func NewAuditHandler(logs *audit.DBLogger) *AuditHandler {
	return &AuditHandler{logs: logs}
}

// List handles GET /api/admin/audit. Filters come from query parameters;
// all are optional.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pagination(r)

	f := audit.Filter{
		ProjectID: q.Get("projectId"),
		EventType: q.Get("eventType"),
		Limit:     limit,
		Offset:    offset,
	}

	if v := q.Get("userId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			helpers.RespondError(w, apperr.Validation("Invalid userId"))
			return
		}
		f.UserID = &id
	}
	if v := q.Get("adminUserId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			helpers.RespondError(w, apperr.Validation("Invalid adminUserId"))
			return
		}
		f.AdminUserID = &id
	}
	if v := q.Get("startDate"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			helpers.RespondError(w, apperr.Validation("startDate must be RFC 3339"))
			return
		}
		f.StartDate = &ts
	}
	if v := q.Get("endDate"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			helpers.RespondError(w, apperr.Validation("endDate must be RFC 3339"))
			return
		}
		f.EndDate = &ts
	}

	entries, err := h.logs.Query(r.Context(), f)
	if err != nil {
		helpers.RespondError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, entries)
}
