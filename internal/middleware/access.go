package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/estate-portal/internal/auth"
)

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login"

// IsProtectedPath reports whether a page path needs a signed-in identity:
// the home page, the dashboard subtree and the listing-detail subtree.
func IsProtectedPath(path string) bool {
	switch {
	case path == "/":
		return true
	case path == "/dashboard" || strings.HasPrefix(path, "/dashboard/"):
		return true
	case strings.HasPrefix(path, "/listing/"):
		return true
	}
	return false
}

// Access gates protected page paths. Without a valid session token the
// request is answered with 307 to exactly LoginPath; the requested path is
// not carried along. With one, the cookie is re-issued so the session
// slides forward, then the page is served. Other paths pass through.
//
// Only presence of an identity is checked here, not its role.
func Access(tokens *auth.TokenService, cookies *auth.Cookies, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsProtectedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			identityID, err := auth.IdentityFromRequest(r, tokens)
			if err != nil {
				logger.Debug("access denied, redirecting to login",
					slog.String("path", r.URL.Path),
					slog.Any("reason", err),
				)
				http.Redirect(w, r, LoginPath, http.StatusTemporaryRedirect)
				return
			}

			if err := cookies.Issue(w, identityID); err != nil {
				// The current cookie is still valid; serve the page anyway.
				logger.Error("failed to refresh session cookie", slog.Any("error", err))
			}

			next.ServeHTTP(w, r)
		})
	}
}
