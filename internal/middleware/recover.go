package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/skillswap/skillswap-api/internal/pkg/logger"
	"github.com/skillswap/skillswap-api/internal/pkg/response"
)

// Recover converts panics into 500 responses and logs the stack with
// the request-scoped logger so the request ID is attached.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.FromContext(r.Context()).Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Panic recovered")

				response.InternalError(w)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
