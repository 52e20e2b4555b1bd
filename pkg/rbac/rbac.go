// Package rbac guards routes by account role.
package rbac

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/kachra/pkg/middleware"
	"github.com/shashiranjanraj/kachra/pkg/response"
)

// HasRole allows only callers whose role is one of roles. It must run after
// middleware.AuthMiddleware.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	msg := "This action requires the " + strings.Join(roles, " or ") + " role"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !allowed[role] {
				response.Error(w, http.StatusForbidden, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
