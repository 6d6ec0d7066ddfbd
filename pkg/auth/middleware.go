package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/mkarev/storefront/pkg/web"
)

// Middleware verifies JWT bearer tokens in the Authorization header and
// stores the token subject in the request context under the same key the
// X-User-Id middleware uses, so downstream handlers are agnostic about which
// identity supplier is configured.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Bearer token is required", http.StatusUnauthorized)
				return
			}

			token, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				http.Error(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			subject, ok := token.Subject()
			if !ok {
				http.Error(w, "no claim `sub`", http.StatusUnauthorized)
				return
			}
			// Enrich the request context with the user identity.
			ctx := context.WithValue(r.Context(), web.UserIDKey, subject)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
