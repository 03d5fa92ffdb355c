package middleware

import (
	"log/slog"
	"net/http"

	"github.com/sakif/estate-portal/internal/auth"
	"github.com/sakif/estate-portal/internal/session"
)

// Session builds a session.Store for each request, resolves it once, and
// puts it in the request context for handlers to read.
func Session(tokens *auth.TokenService, profiles session.ProfileSource, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := session.NewStore(auth.NewRequestIdentity(r, tokens), profiles, logger)
			store.FetchUser(r.Context())
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), store)))
		})
	}
}
