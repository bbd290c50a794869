// Package api wires the HTTP surface: the end-user auth endpoints under
// /api/auth/{projectID} and the admin console under /api/admin.
package api

import (
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gatehouse-dev/gatehouse/internal/admin"
	custommw "github.com/gatehouse-dev/gatehouse/internal/api/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth   *AuthHandler
	OAuth  *OAuthHandler
	Admin  *AdminHandler
	Config *ConfigHandler
	Proj   *ProjectHandler
	Audit  *AuditHandler
}

// NewRouter assembles the full route tree with the shared middleware stack.
func NewRouter(h Handlers, adminSvc *admin.Service) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// Sentry sits before recovery so panics reach it with request scope.
	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	r.Use(sentryHandler.Handle)

	r.Use(custommw.RequestLogger)
	r.Use(custommw.PanicRecovery)

	limiter := custommw.NewIPRateLimiter(10, 20)
	r.Use(limiter.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})

	// End-user surface.
	r.Route("/api/auth/{projectID}", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
		r.Get("/me", h.Auth.Me)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password", h.Auth.ResetPassword)
		r.Get("/confirm-email", h.Auth.ConfirmEmail)
		r.Get("/oauth/{provider}", h.OAuth.Authorize)
		r.Get("/oauth/{provider}/callback", h.OAuth.Callback)
	})

	// Admin surface.
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", h.Admin.Login)

		r.Group(func(r chi.Router) {
			r.Use(custommw.AdminAuth(adminSvc))

			r.Post("/logout", h.Admin.Logout)
			r.Get("/me", h.Admin.Me)
			r.Get("/audit", h.Audit.List)

			// Reads are open to every role; writes need admin or above.
			r.Get("/projects", h.Proj.List)
			r.Get("/projects/{projectID}", h.Proj.Get)
			r.Get("/projects/{projectID}/users", h.Proj.ListUsers)
			r.Get("/projects/{projectID}/users/{userID}", h.Proj.GetUser)
			r.Get("/projects/{projectID}/oauth", h.Config.ListOAuthConfigs)
			r.Get("/projects/{projectID}/rate-limits", h.Config.ListRules)
			r.Get("/projects/{projectID}/email/templates", h.Config.ListTemplates)
			r.Get("/email/providers", h.Config.ListEmailProviders)
			r.Get("/email/templates", h.Config.ListTemplates)
			r.Get("/admins", h.Admin.List)
			r.Get("/admins/{adminID}", h.Admin.Get)

			r.Group(func(r chi.Router) {
				r.Use(custommw.RequireWriter)

				r.Post("/projects", h.Proj.Create)
				r.Patch("/projects/{projectID}", h.Proj.Update)
				r.Delete("/projects/{projectID}", h.Proj.Delete)

				r.Patch("/projects/{projectID}/users/{userID}", h.Proj.UpdateUser)
				r.Delete("/projects/{projectID}/users/{userID}", h.Proj.DeleteUser)
				r.Post("/projects/{projectID}/users/{userID}/revoke-tokens", h.Proj.RevokeUserTokens)

				r.Put("/projects/{projectID}/oauth", h.Config.UpsertOAuthConfig)
				r.Delete("/projects/{projectID}/oauth/{provider}", h.Config.DeleteOAuthConfig)

				r.Put("/projects/{projectID}/rate-limits", h.Config.UpsertRule)
				r.Delete("/projects/{projectID}/rate-limits/{ruleID}", h.Config.DeleteRule)

				r.Put("/projects/{projectID}/email/templates", h.Config.UpsertTemplate)
				r.Delete("/projects/{projectID}/email/templates/{templateType}", h.Config.DeleteTemplate)

				r.Post("/email/providers", h.Config.CreateEmailProvider)
				r.Put("/email/providers/{providerID}", h.Config.UpdateEmailProvider)
				r.Delete("/email/providers/{providerID}", h.Config.DeleteEmailProvider)
				r.Put("/email/templates", h.Config.UpsertTemplate)

				r.Post("/admins/{adminID}/password", h.Admin.ChangePassword)
			})

			r.Group(func(r chi.Router) {
				r.Use(custommw.RequireSuperAdmin)

				r.Post("/admins", h.Admin.Create)
				r.Patch("/admins/{adminID}", h.Admin.Update)
				r.Delete("/admins/{adminID}", h.Admin.Delete)
			})
		})
	})

	return r
}
