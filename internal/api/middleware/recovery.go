package middleware

import (
	"log/slog"
	"net/http"

	"github.com/sqrrr/gamehub/internal/api/apierr"
	"github.com/sqrrr/gamehub/internal/middleware"
)

// Recovery creates panic recovery middleware for the API.
// Panics answer with the standard API error envelope.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	apierr.WriteError(w, apierr.NewInternalError())
}
