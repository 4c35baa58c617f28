package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zentra/emotebank/internal/utils"
)

// Counter increments key within a fixed window and returns the new count.
// database.IncrementRateLimit satisfies it.
type Counter func(ctx context.Context, key string, window time.Duration) (int64, error)

// RateLimitMiddleware limits requests per client IP to rps per second
func RateLimitMiddleware(incr Counter, rps int) func(http.Handler) http.Handler {
	limit := strconv.Itoa(rps)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count, err := incr(r.Context(), "ip:"+clientIP(r), time.Second)
			if err != nil {
				// Fail open when the limiter is unavailable
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", limit)
			if count > int64(rps) {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")
				utils.RespondError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(rps)-count, 10))

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
