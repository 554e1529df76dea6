package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientKey derives the identity a request is counted under: the first IP in
// X-Forwarded-For, then X-Real-IP, then the peer address. "unknown" is the
// last resort so a request with no usable address still shares one bucket
// instead of escaping the limiter.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
