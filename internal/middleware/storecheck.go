package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// StoreCheckMiddleware rejects requests with 503 when the database is
// unreachable, so handlers never observe a dead store mid-request.
func StoreCheckMiddleware(db *sql.DB, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := db.PingContext(ctx); err != nil {
				logger.Error("Database unreachable", zap.Error(err))
				RespondWithError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
