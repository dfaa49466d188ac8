package server

import (
	"net/http"
	"slices"
	"strconv"
	"time"
)

const (
	corsAllowMethods  = "GET, POST, OPTIONS"
	corsExposeHeaders = "mcp-session-id, mcp-protocol-version"

	// DefaultCORSMaxAge is how long browsers may cache a preflight answer.
	DefaultCORSMaxAge = 24 * time.Hour
)

// CORSConfig configures cross-origin access to the HTTP surface.
type CORSConfig struct {
	// AllowedOrigins lists the origins allowed to call the server.
	// "*" allows any origin. Empty means "*".
	AllowedOrigins []string

	// MaxAge is sent as Access-Control-Max-Age on preflight responses.
	MaxAge time.Duration
}

func (c CORSConfig) allowOrigin(origin string) (string, bool) {
	if len(c.AllowedOrigins) == 0 || slices.Contains(c.AllowedOrigins, "*") {
		return "*", true
	}
	if origin != "" && slices.Contains(c.AllowedOrigins, origin) {
		return origin, true
	}
	return "", false
}

// corsMiddleware adds CORS headers to every response and answers
// preflight requests with 204. Requests from origins that are not allowed
// get no CORS headers and are left for the browser to reject.
func corsMiddleware(config CORSConfig, next http.Handler) http.Handler {
	maxAge := config.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultCORSMaxAge
	}
	maxAgeSeconds := strconv.Itoa(int(maxAge / time.Second))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed, ok := config.allowOrigin(origin)

		h := w.Header()
		if ok {
			h.Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if ok {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", reqHeaders)
				} else {
					h.Set("Access-Control-Allow-Headers", "*")
				}
				h.Set("Access-Control-Max-Age", maxAgeSeconds)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
