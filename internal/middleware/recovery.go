package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/sqrrr/gamehub/internal/model"
)

// PanicHandler writes the response for a request whose handler panicked.
// It is only called while the response is still untouched.
type PanicHandler func(w http.ResponseWriter, r *http.Request, err error)

// Recovery turns handler panics into an error response built by handler.
// A panic after the response started (including upgraded websockets) is only
// logged, since nothing well-formed can be written any more.
// http.ErrAbortHandler is re-raised for net/http to abort the connection.
func Recovery(logger *slog.Logger, handler PanicHandler) func(http.Handler) http.Handler {
	if handler == nil {
		handler = ReasonPanicHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracked := &ResponseWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				err := panicError(v)
				logger.Error("panic recovered",
					slog.String("error", err.Error()),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("responseStarted", tracked.Started()),
				)
				if tracked.Started() {
					return
				}
				handler(tracked, r, err)
			}()

			next.ServeHTTP(tracked, r)
		})
	}
}

// ErrPanic wraps every recovered panic value
var ErrPanic = errors.New("handler panicked")

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, v)
}

// ReasonPanicHandler answers 500 with the reason payload sockets use, so
// non-API routes fail in the same shape clients already parse.
func ReasonPanicHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(model.ReasonPayload{
		Reason:  model.ReasonInternal,
		Message: "internal error",
	})
}
