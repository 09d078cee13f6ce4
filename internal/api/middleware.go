package api

import (
	"encoding/json"
	"net"
	"net/http"
)

// RateLimitMiddleware throttles requests per remote address
func RateLimitMiddleware(limiter interface{ Allow(key string) bool }) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientAddr(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many agent connections.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr extracts the remote host, without port
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
