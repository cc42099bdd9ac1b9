// metrics.go — Prometheus HTTP метрики servicedesk.
// Регистрирует метрики: sd_http_requests_total, sd_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sd_http_requests_total",
			Help: "Общее количество HTTP-запросов к servicedesk",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sd_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к servicedesk в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем id на {id} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(code)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// resources — коллекции API.
var resources = map[string]bool{
	"brigades":     true,
	"locations":    true,
	"objects":      true,
	"statuses":     true,
	"applications": true,
}

// normalizePath заменяет id записи на {id} для предотвращения
// взрывного роста кардинальности метрик.
// /applications/42/ → /applications/{id}/
// Неизвестные пути сворачиваются в "other".
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics", "/openapi.yaml",
		"/register/", "/login/", "/logout/", "/token/refresh/":
		return path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || !resources[parts[0]] {
		return "other"
	}
	switch len(parts) {
	case 1:
		return "/" + parts[0] + "/"
	case 2:
		return "/" + parts[0] + "/{id}/"
	}
	return "other"
}
