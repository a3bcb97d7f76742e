package middleware

import (
	"crypto/subtle"
	"net/http"
)

const AdminTokenHeader = "X-Admin-Token"

// AdminMiddleware guards admin routes with a shared token. An empty token
// disables the routes entirely.
type AdminMiddleware struct {
	token string
}

func NewAdminMiddleware(token string) *AdminMiddleware {
	return &AdminMiddleware{token: token}
}

func (m *AdminMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.token == "" {
			http.NotFound(w, r)
			return
		}
		got := r.Header.Get(AdminTokenHeader)
		if got == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(m.token)) != 1 {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
