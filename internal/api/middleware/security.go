// security.go — заголовки безопасности ответа и CORS.
package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// contentSecurityPolicy — политика CSP для клиентского приложения.
var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' https://cdn.tailwindcss.com",
	"img-src 'self' data: https://placehold.co",
	"style-src 'self' 'unsafe-inline'",
	"font-src 'self' https://fonts.gstatic.com",
	"connect-src 'self' http://127.0.0.1:8000",
	"frame-ancestors 'self'",
}, "; ")

// SecurityHeaders добавляет CSP и стандартные заголовки безопасности.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", contentSecurityPolicy)
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			next.ServeHTTP(w, r)
		})
	}
}

// CORSOptions — настройки CORS.
type CORSOptions struct {
	// AllowedOrigins — разрешённые origin
	AllowedOrigins []string
	// AllowAll — отражать любой origin (с учётом credentials)
	AllowAll bool
}

// CORS возвращает CORS middleware (go-chi/cors).
// Credentials разрешены: refresh token передаётся в cookie.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	o := cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Accept-Encoding", "Authorization", "Content-Type",
			"DNT", "Origin", "User-Agent", "X-CSRFToken", "X-Requested-With",
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	switch {
	case opts.AllowAll:
		// Origin отражается в ответе: "*" несовместим с credentials.
		o.AllowOriginFunc = func(_ *http.Request, _ string) bool { return true }
	case len(opts.AllowedOrigins) == 0:
		// Пустой список в go-chi/cors означает "все origin".
		o.AllowOriginFunc = func(_ *http.Request, _ string) bool { return false }
	}
	return cors.Handler(o)
}
