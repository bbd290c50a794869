package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
)

// PanicRecovery turns a handler panic into a generic 500. The panic value
// and stack go to the log and to the request's Sentry hub, never to the
// client.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			slog.Error("panic_recovered",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"ip", r.RemoteAddr,
				"stack", string(debug.Stack()),
			)
			if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
				hub.Recover(rec)
			}

			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
