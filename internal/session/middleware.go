package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Google 연동 API는 세션이 필요합니다
var protectedPrefixes = []string{
	"/api/google/",
}

// Middleware는 쿠키의 세션을 컨텍스트에 넣고, 보호된 경로는 세션이 없으면 401을 반환합니다
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		var resolveErr error = ErrNoSession
		if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
			sess, err := m.Resolve(cookie.Value)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
				return
			}
			resolveErr = err
		}

		if isProtectedPath(r.URL.Path) {
			writeUnauthorized(w, resolveErr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	message := "Unauthorized"
	if errors.Is(err, ErrExpired) {
		message = "Session expired"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func isProtectedPath(path string) bool {
	for _, prefix := range protectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
