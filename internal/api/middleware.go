// internal/api/middleware.go
package api

import (
	"net/http"
	"strings"

	"cardvault/internal/api/handler"
	"cardvault/internal/service"
)

// AuthMiddleware resolves the Bearer token into an Actor and stores it in
// the request context. Requests without a valid token get 401.
func AuthMiddleware(auth service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, `{"error":"missing or malformed authorization header"}`, http.StatusUnauthorized)
				return
			}

			actor, err := auth.ResolveActor(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(handler.WithActor(r.Context(), actor)))
		})
	}
}

// RequirePrivileged rejects requests whose actor is not privileged.
func RequirePrivileged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := handler.ActorFromContext(r.Context())
		if !ok || !actor.Privileged {
			http.Error(w, `{"error":"admin access required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
