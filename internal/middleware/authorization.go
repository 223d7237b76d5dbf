package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireAdmin rejects requests whose token does not carry the admin role.
// It must run after AuthMiddleware so the role claim is in the context.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok || role != "admin" {
				userID, _ := GetUserID(r.Context())
				logger.Warn("Admin endpoint denied",
					zap.String("user_id", userID),
					zap.String("role", role),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
