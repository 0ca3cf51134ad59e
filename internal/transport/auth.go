package transport

import (
	"net/http"
	"strings"

	"github.com/noaesperanza/imre/internal/auth"
)

// AuthMiddleware enforces bearer token authentication and stores the
// resolved identity in the request context.
func AuthMiddleware(resolver auth.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			id, err := resolver.Resolve(r.Context(), token)
			if err != nil || id.TenantID == "" {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// DefaultIdentityMiddleware assigns the default tenant when authentication
// is disabled. The actor is taken from the X-Actor-Ref header, if any.
func DefaultIdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.Identity{
			TenantID: auth.DefaultTenant,
			ActorRef: strings.TrimSpace(r.Header.Get(ActorHeader)),
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// ActorHeader names the acting user when the credential carries none.
const ActorHeader = "X-Actor-Ref"
