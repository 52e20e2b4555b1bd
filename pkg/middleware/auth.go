package middleware

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/kachra/pkg/auth"
	"github.com/shashiranjanraj/kachra/pkg/logger"
	"github.com/shashiranjanraj/kachra/pkg/response"
)

// AuthMiddleware requires "Authorization: Bearer <token>" and stores the
// caller's auth.Identity in the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Unauthorized(w)
			return
		}

		claims, err := auth.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		id := claims.Identity()
		ctx := auth.WithIdentity(r.Context(), id)
		ctx = logger.InjectLogger(ctx, logger.WithCtx(ctx).With("user", id.Email))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RoleFromCtx returns the authenticated caller's role.
func RoleFromCtx(r *http.Request) (string, bool) {
	id, ok := auth.FromCtx(r.Context())
	return id.Role, ok
}
