// hosts.go — проверка заголовка Host по списку ALLOWED_HOSTS.
package middleware

import (
	"net"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/servicedesk/internal/api/errors"
)

// AllowedHosts возвращает middleware, отклоняющий запросы с неизвестным Host (400).
// Шаблоны: "*" — любой хост, ".example.com" — домен и все поддомены, иначе точное совпадение.
func AllowedHosts(patterns []string) func(http.Handler) http.Handler {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			normalized = append(normalized, p)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hostAllowed(requestHost(r.Host), normalized) {
				apierrors.BadRequest(w, apierrors.MsgInvalidHost)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestHost возвращает хост без порта в нижнем регистре.
func requestHost(hostport string) string {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.Trim(host, "[]"), ".")
	return strings.ToLower(host)
}

func hostAllowed(host string, patterns []string) bool {
	if host == "" {
		return false
	}
	for _, p := range patterns {
		switch {
		case p == "*":
			return true
		case strings.HasPrefix(p, "."):
			if host == p[1:] || strings.HasSuffix(host, p) {
				return true
			}
		case host == p:
			return true
		}
	}
	return false
}
