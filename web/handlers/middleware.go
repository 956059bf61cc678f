// Package handlers provides the HTTP surface for the selfmap MCP endpoint.
package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/selfmap/selfmap/internal/config"
	"golang.org/x/time/rate"
)

// writeJSONError emits a small machine-readable error body so that MCP
// clients hitting the HTTP transport never have to parse HTML.
func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, `{"error":"`+msg+`","code":"`+code+`"}`, status)
}

// RequireAuth enforces bearer-token authentication in production mode.
// Development mode passes every request through untouched, so local agents
// need no token. Token comparison is constant-time.
func RequireAuth(next http.Handler, cfg *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.Security.SecurityMode == "development" {
			next.ServeHTTP(w, r)
			return
		}

		want := cfg.Security.APIToken
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		// An empty configured token locks the endpoint rather than opening it.
		if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimiter wraps a token-bucket limiter shared by all requests.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter.
// reqPerSec is the sustained rate, burst is the maximum burst size.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(reqPerSec), burst)}
}

// RateLimitMiddleware rejects requests beyond the configured rate with 429.
func RateLimitMiddleware(next http.Handler, rl *RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
