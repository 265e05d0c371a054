package middleware

import (
	"context"
	"net/http"
	"strings"

	authcore "github.com/planora/authcore"
	"github.com/planora/authcore/session"
)

type sessionContextKey struct{}

// SessionFromContext returns the session payload attached by [RequireSession].
func SessionFromContext(ctx context.Context) (*session.Payload, bool) {
	payload, ok := ctx.Value(sessionContextKey{}).(*session.Payload)
	return payload, ok
}

// RequireSession validates the session cookie on every request outside the
// public path allowlist and injects the decoded payload into the request
// context. Requests without a valid session are redirected to loginPath.
func RequireSession(engine *authcore.Engine, publicPrefixes []string, loginPath string) func(http.Handler) http.Handler {
	cookieName := engine.Config().Session.CookieName

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range publicPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			cookie, err := r.Cookie(cookieName)
			if err != nil {
				redirectOrReject(w, r, loginPath)
				return
			}

			payload, err := engine.VerifySession(cookie.Value)
			if err != nil {
				redirectOrReject(w, r, loginPath)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// redirectOrReject sends browsers to the login page and API clients a 401.
func redirectOrReject(w http.ResponseWriter, r *http.Request, loginPath string) {
	if loginPath != "" && !strings.HasPrefix(r.URL.Path, "/api/") {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
