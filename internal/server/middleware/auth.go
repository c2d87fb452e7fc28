package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Paths load balancers and uptime probes must reach without credentials.
var openPaths = map[string]bool{
	"/api/health": true,
}

// Auth returns middleware guarding the observation API with a static key,
// accepted as either "Authorization: Bearer <key>" or "X-API-Key: <key>".
// An empty configured key disables the guard entirely. Missing and wrong
// tokens get the same response, so probes cannot tell the two apart.
func Auth(apiKey string) func(http.Handler) http.Handler {
	key := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(key) == 0 || openPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token := requestToken(r)
			if subtle.ConstantTimeCompare([]byte(token), key) != 1 {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestToken extracts the presented credential: Bearer scheme first, then
// the X-API-Key header.
func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
