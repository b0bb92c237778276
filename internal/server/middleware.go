package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
)

// basicAuth gates requests on the two configured credential values. When the
// credentials are not configured at all, every request is rejected, which
// keeps an accidentally unconfigured deployment private rather than open.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := s.cfg.Auth.Username
		password := s.cfg.Auth.Password

		user, pass, ok := r.BasicAuth()
		if username == "" || password == "" {
			s.log.Warn("basic auth credentials not configured, rejecting request",
				"path", r.URL.Path)
			s.unauthorized(w)
			return
		}
		if !ok {
			s.unauthorized(w)
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !userMatch || !passMatch {
			s.log.Warn("invalid basic auth attempt", "remote_addr", r.RemoteAddr)
			s.unauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", s.cfg.Auth.Realm))
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// securityHeaders adds security headers to all responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Referrer policy
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Allow inline scripts/styles for HTMX and the CDN assets
		csp := "default-src 'self'; " +
			"script-src 'self' 'unsafe-inline' https://unpkg.com; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data: https:;"
		w.Header().Set("Content-Security-Policy", csp)

		next.ServeHTTP(w, r)
	})
}
