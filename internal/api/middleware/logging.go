package middleware

import (
	"log/slog"
	"net/http"

	"github.com/sqrrr/gamehub/internal/middleware"
)

const healthPath = "/api/v1/health"

// Logging creates request logging middleware for the API.
// Health checks are not logged.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	logged := middleware.Logging(logger)
	return func(next http.Handler) http.Handler {
		withLog := logged(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == healthPath {
				next.ServeHTTP(w, r)
				return
			}
			withLog.ServeHTTP(w, r)
		})
	}
}
