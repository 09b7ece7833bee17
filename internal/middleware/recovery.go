package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// PanicHandler writes the error response for a recovered panic
type PanicHandler func(w http.ResponseWriter, r *http.Request, err any)

// Recovery turns handler panics into the response written by handler.
// A panic after a websocket upgrade is only logged since the connection no longer speaks HTTP.
func Recovery(logger *slog.Logger, handler PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if e, ok := err.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(err)
				}

				hijacked := isHijacked(w)
				logger.Error("panic recovered",
					slog.Any("error", err),
					slog.String("stack", string(debug.Stack())),
					slog.String("request_id", w.Header().Get(RequestIDHeader)),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("hijacked", hijacked),
				)
				if !hijacked {
					handler(w, r, err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func isHijacked(w http.ResponseWriter) bool {
	h, ok := w.(interface{ Hijacked() bool })
	return ok && h.Hijacked()
}
