package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// APIKeyHeaderName is the HTTP header carrying the API key
const APIKeyHeaderName = "X-API-Key"

// AuthConfig holds API key middleware configuration
type AuthConfig struct {
	// APIKey is the shared key required on every request.
	// An empty key disables authentication (local development).
	APIKey string

	// ExemptPaths are paths that skip authentication (health, metrics)
	ExemptPaths []string
}

// DefaultAuthConfig returns default configuration
func DefaultAuthConfig(apiKey string) *AuthConfig {
	return &AuthConfig{
		APIKey:      apiKey,
		ExemptPaths: []string{"/healthz", "/metrics"},
	}
}

// AuthMiddleware validates the API key on each request using a
// constant-time comparison. Keys are accepted from the X-API-Key header
// or an Authorization: Bearer token.
func AuthMiddleware(config *AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config == nil || config.APIKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			for _, path := range config.ExemptPaths {
				if r.URL.Path == path || strings.HasPrefix(r.URL.Path, path+"/") {
					next.ServeHTTP(w, r)
					return
				}
			}

			submitted := r.Header.Get(APIKeyHeaderName)
			if submitted == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					submitted = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if submitted == "" {
				log.Warn().
					Str("client_ip", GetClientIP(r)).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("API key missing")
				http.Error(w, "API key missing", http.StatusUnauthorized)
				return
			}

			// Constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(config.APIKey), []byte(submitted)) != 1 {
				log.Warn().
					Str("client_ip", GetClientIP(r)).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("API key invalid")
				http.Error(w, "API key invalid", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
