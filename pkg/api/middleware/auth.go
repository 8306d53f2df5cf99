// Package middleware provides HTTP middleware for the catalog API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/marmos91/stickerd/pkg/api/handlers"
)

// extractToken pulls the upload token from either the x-upload-token header
// or a Bearer Authorization header.
func extractToken(r *http.Request) string {
	if token := r.Header.Get("x-upload-token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// UploadToken guards a route with a shared token. An empty configured token
// disables the check entirely.
func UploadToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				provided := extractToken(r)
				if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
					handlers.Unauthorized(w, "Invalid upload token")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
