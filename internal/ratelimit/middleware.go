package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// rejectBody is the 429 payload. The flat detail shape is part of the public
// API contract and intentionally differs from the structured error envelope.
type rejectBody struct {
	Detail string `json:"detail"`
}

const rejectDetail = "Too many requests. Please try again later."

// Middleware gates requests through the limiter. Bypass prefixes (health
// probes, metrics) short-circuit before any key derivation or counting. Every
// limited response carries the limit and window headers so clients can pace
// themselves; rejections add Retry-After.
func Middleware(limiter *Limiter, bypassPrefixes []string) func(http.Handler) http.Handler {
	limitHeader := strconv.FormatInt(limiter.Limit(), 10)
	windowHeader := strconv.Itoa(int(limiter.Window().Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range bypassPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			decision := limiter.Check(r.Context(), ClientKey(r))

			w.Header().Set("X-RateLimit-Limit", limitHeader)
			w.Header().Set("X-RateLimit-Window", windowHeader)

			if !decision.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(rejectBody{Detail: rejectDetail})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
