// logging.go — журнал доступа servicedesk.
//
// RequestLogger пишет одну строку на запрос и кладёт в контекст запись
// requestInfo. BearerAuth дописывает в неё имя пользователя, а ErrorNormalizer
// берёт из неё атрибуты для своих WARN/ERROR: подробности ошибок пишет только он.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestIDHeader — заголовок ответа с идентификатором запроса.
const RequestIDHeader = "X-Request-ID"

// anonymous — значение username для запросов без аутентификации.
const anonymous = "-"

// requestInfo — изменяемые сведения о запросе, общие для middleware одной цепочки.
type requestInfo struct {
	id       string
	username string
}

type requestInfoKey struct{}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

// setRequestUser запоминает пользователя для журнала доступа.
func setRequestUser(ctx context.Context, username string) {
	if info := requestInfoFrom(ctx); info != nil {
		info.username = username
	}
}

// requestAttrs — атрибуты, которыми помечаются все записи о запросе.
func requestAttrs(r *http.Request) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	if info := requestInfoFrom(r.Context()); info != nil {
		username := info.username
		if username == "" {
			username = anonymous
		}
		attrs = append(attrs,
			slog.String("request_id", info.id),
			slog.String("username", username),
		)
	}
	return attrs
}

// RequestLogger возвращает middleware журнала доступа.
// Ожидает chi middleware.RequestID выше по цепочке.
// Запросы к путям с префиксами quiet (health-проверки, scrape метрик) пишутся на DEBUG,
// если завершились успешно; их ошибки идут на WARN, так как ErrorNormalizer их не видит.
func RequestLogger(logger *slog.Logger, quiet ...string) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "access_log"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			info := &requestInfo{id: chimw.GetReqID(r.Context())}
			if info.id != "" {
				w.Header().Set(RequestIDHeader, info.id)
			}
			r = r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			if hasAnyPrefix(r.URL.Path, quiet) {
				level = slog.LevelDebug
				if status >= http.StatusBadRequest {
					level = slog.LevelWarn
				}
			}

			attrs := append(requestAttrs(r),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("remote_addr", r.RemoteAddr),
			)
			logger.LogAttrs(r.Context(), level, "HTTP запрос", attrs...)
		})
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
