package middleware

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pawbazaar/querykit/internal/web/ratelimit"
	"github.com/pawbazaar/querykit/internal/web/response"
)

var errRateLimited = errors.New("too many requests, slow down")

// RateLimitKeyFunc extracts the key a request is counted under
type RateLimitKeyFunc func(*http.Request) string

// ClientIP keys requests by the host part of RemoteAddr. Install it after a
// real-IP middleware when running behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit answers 429 once a client exceeds the limiter's quota and sets
// the X-RateLimit headers on every counted response. Limiter failures are
// logged and the request is let through.
func RateLimit(limiter ratelimit.Limiter, key RateLimitKeyFunc, logger *zap.Logger) Middleware {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			d, err := limiter.Allow(r.Context(), k)
			if err != nil {
				logger.Warn("rate limit check failed",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retry := int(math.Ceil(time.Until(d.ResetAt).Seconds()))
				if retry < 1 {
					retry = 1
				}
				h.Set("Retry-After", strconv.Itoa(retry))
				response.RenderErrorWithCode(w, http.StatusTooManyRequests, errRateLimited,
					"rate_limited", GetRequestID(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
