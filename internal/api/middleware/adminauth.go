package middleware

import (
	"net/http"

	"github.com/gatehouse-dev/gatehouse/internal/admin"
	"github.com/gatehouse-dev/gatehouse/internal/api/helpers"
	"github.com/gatehouse-dev/gatehouse/internal/apperr"
)

// SessionHeader carries the admin session token.
const SessionHeader = "X-Admin-Session"

// AdminAuth verifies the session header and attaches the admin to the
// request context. Verification also slides the session window.
func AdminAuth(svc *admin.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.Header.Get(SessionHeader)
			if tokenString == "" {
				helpers.RespondError(w, apperr.AuthFailure("Admin session required"))
				return
			}

			u, err := svc.VerifySession(r.Context(), tokenString)
			if err != nil {
				helpers.RespondError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAdminUser(r.Context(), u)))
		})
	}
}

// RequireWriter refuses viewers on mutating admin routes.
func RequireWriter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := AdminUserFrom(r.Context())
		if u == nil || !admin.CanWrite(u.Role) {
			helpers.RespondError(w, apperr.Forbidden("Insufficient role"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSuperAdmin restricts a route to super admins.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := AdminUserFrom(r.Context())
		if u == nil || u.Role != admin.RoleSuperAdmin {
			helpers.RespondError(w, apperr.Forbidden("Insufficient role"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
