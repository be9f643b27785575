package middleware

import (
	"net/http"
	"runtime/debug"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

// Recovery is a middleware that recovers from panics and returns a 500 envelope
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// Let the server abort the connection as usual
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger := utils.RequestLogger(chimiddleware.GetReqID(r.Context()), "", r.Method, r.URL.Path)
				logger.Error().
					Interface("panic", rec).
					Str("remote_addr", r.RemoteAddr).
					Str("stack", string(debug.Stack())).
					Msg("Panic recovered in request handler")

				utils.ErrorFromAppError(w, utils.NewInternalServerError(nil))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
