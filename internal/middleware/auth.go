package middleware

import (
	"net/http"
	"strings"

	"intruderwatch/internal/service/session"
)

// SessionValidator checks session tokens issued at login.
type SessionValidator interface {
	Valid(token string) bool
}

// publicPrefixes are reachable without a session.
var publicPrefixes = []string{"/static/"}

// publicPaths are reachable without a session.
var publicPaths = map[string]bool{
	"/login":      true,
	"/auth/login": true,
}

func isPublic(path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// wantsJSON is true for API and AJAX requests, which get 401 instead of a redirect.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		r.Header.Get("Content-Type") == "application/json"
}

// AuthMiddleware lets a request through only when it carries a session cookie
// the store recognises.
func AuthMiddleware(sessions SessionValidator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if cookie, err := r.Cookie(session.CookieName); err == nil && sessions.Valid(cookie.Value) {
			next.ServeHTTP(w, r)
			return
		}

		if wantsJSON(r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}
