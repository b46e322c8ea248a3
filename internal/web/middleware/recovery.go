package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pawbazaar/querykit/internal/web/response"
)

// errInternal is the message clients see when a handler panics
var errInternal = errors.New("an unexpected error occurred")

// Recovery recovers from panics, logs them with a stack trace and answers
// with a JSON 500. http.ErrAbortHandler is re-raised.
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := GetRequestID(r.Context())
				logger.Error("panic recovered",
					zap.String("request_id", requestID),
					zap.String("panic", fmt.Sprint(rec)),
					zap.Stack("stack"),
				)
				response.RenderError(w, http.StatusInternalServerError, errInternal, requestID)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
