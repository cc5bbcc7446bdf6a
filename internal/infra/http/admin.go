package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"net/http"
	"strings"
)

// AdminTokenMiddleware пропускает запросы с заголовком Authorization: Bearer <token>.
// Пустой токен закрывает доступ полностью.
func AdminTokenMiddleware(token string) func(http.Handler) http.Handler {
	expected := sha256.Sum256([]byte(token))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, "admin API disabled", http.StatusForbidden)
				return
			}
			provided, ok := bearerToken(r)
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			sum := sha256.Sum256([]byte(provided))
			if !hmac.Equal(sum[:], expected[:]) {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
