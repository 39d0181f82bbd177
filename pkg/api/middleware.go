package api

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// requestLogger logs incoming HTTP requests.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("remote", r.RemoteAddr).
			WithField("duration", time.Since(start)).
			Debug("Request handled")
	})
}

// requireToken checks the Bearer token against the configured bcrypt hash.
// An empty configured hash disables authentication.
func (s *server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.TokenHash == "" {
			next.ServeHTTP(w, r)

			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, errorResponse{"authentication required"})

			return
		}

		token := authHeader[7:]

		if err := bcrypt.CompareHashAndPassword(
			[]byte(s.cfg.Server.TokenHash), []byte(token),
		); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{"invalid token"})

			return
		}

		next.ServeHTTP(w, r)
	})
}
