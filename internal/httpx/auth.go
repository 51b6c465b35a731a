package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-shop-orders/internal/auth"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"
)

// Authenticated reads the identity forwarded by the gateway in front of
// this service and rejects requests without one.
func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderUserID)
		if id == "" {
			fail(w, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		role, valid := auth.ParseRole(r.Header.Get(HeaderRole))
		if !valid {
			fail(w, http.StatusUnauthorized, "unknown role", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), auth.Principal{UserID: id, Role: role})))
	})
}

// RequireRole lets only the listed roles through. It must run after
// Authenticated.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := auth.FromContext(r.Context())
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			fail(w, http.StatusForbidden, "insufficient role", nil)
		})
	}
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}
