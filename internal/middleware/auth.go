package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"guardian-inventory/pkg/apierror"
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// APIKeys are the accepted keys. An empty list disables the check.
	APIKeys []string

	// PublicPaths skip the check.
	PublicPaths []string
}

// ParseAPIKeys splits a comma-separated key list.
func ParseAPIKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// NewAuthMiddleware creates an API key middleware. The key is read from
// X-API-Key, a Bearer Authorization header, or the api_key query parameter
// (browsers cannot set headers on websocket upgrades).
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = true
	}

	return func(next http.Handler) http.Handler {
		if len(cfg.APIKeys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					apiKey = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if apiKey == "" {
				apiKey = r.URL.Query().Get("api_key")
			}

			if apiKey == "" {
				apierror.Unauthorized("Authentication required. Use the X-API-Key header.").Write(w)
				return
			}
			if !isValidKey(apiKey, cfg.APIKeys) {
				apierror.Unauthorized("Invalid API key").Write(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isValidKey checks if the provided key is in the valid keys list.
func isValidKey(key string, validKeys []string) bool {
	for _, valid := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}
