package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/breatheroute/whoair/internal/api/models"
)

// Recovery returns a middleware that turns panics into a 500 Problem response.
// It logs through the request logger when Logger ran first, else through log.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rv := recover()
				if rv == nil {
					return
				}
				if rv == http.ErrAbortHandler {
					panic(rv)
				}

				reqLog := zerolog.Ctx(r.Context())
				if reqLog.GetLevel() == zerolog.Disabled {
					reqLog = &log
				}
				reqLog.Error().
					Interface("panic", rv).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				requestID := GetRequestID(r.Context())
				models.NewInternalError(requestID, "an unexpected error occurred").
					WithInstance(r.URL.Path).
					Write(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
