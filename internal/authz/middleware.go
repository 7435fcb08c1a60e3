package authz

import (
	"net/http"

	"github.com/strandnet/console/internal/auth"
	pkghttp "github.com/strandnet/console/pkg/http"
)

// RequirePermission enforces one action code on a route. Must be mounted
// after the bearer middleware; a missing StaffContext is a 401, a denied
// action is a 403.
func RequirePermission(resolver *Resolver, action string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc := auth.StaffFromRequest(r)
			if sc == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			if !resolver.Can(sc.Role, action) {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
