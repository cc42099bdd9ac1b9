// errors.go — нормализация ответов с ошибками.
// Паника — 500 с общим сообщением; тело ответов 5xx заменяется общим сообщением;
// ошибки 4xx без detail (объект полей или список) оборачиваются в общий конверт.
package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	apierrors "github.com/bigkaa/servicedesk/internal/api/errors"
)

// maxLoggedBody — сколько байт тела ошибки попадает в лог.
const maxLoggedBody = 2048

// errorResponseWriter буферизует тело ответов со статусом >= 400.
// Успешные ответы пишутся напрямую.
type errorResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	buffering   bool
	buf         bytes.Buffer
}

func (rw *errorResponseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.statusCode = code
	if code >= http.StatusBadRequest {
		rw.buffering = true
		return
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *errorResponseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.buffering {
		return rw.buf.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *errorResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// ErrorNormalizer возвращает middleware нормализации ошибок.
// Пути с префиксами passthrough (health endpoints) отдаются как есть.
func ErrorNormalizer(logger *slog.Logger, passthrough ...string) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "error_normalizer"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasAnyPrefix(r.URL.Path, passthrough) {
				next.ServeHTTP(w, r)
				return
			}

			rw := &errorResponseWriter{ResponseWriter: w}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // сравнение значения паники
					panic(rec)
				}
				logger.LogAttrs(r.Context(), slog.LevelError, "Непредвиденная ошибка сервера",
					append(requestAttrs(r),
						slog.String("panic", fmt.Sprint(rec)),
						slog.String("stack", string(debug.Stack())),
					)...,
				)
				// Заголовок успешного ответа уже отправлен — исправить ответ нельзя.
				if rw.wroteHeader && !rw.buffering {
					return
				}
				w.Header().Del("Content-Length")
				apierrors.InternalError(w)
			}()

			next.ServeHTTP(rw, r)

			if rw.buffering {
				normalizeError(logger, w, r, rw.statusCode, rw.buf.Bytes())
			}
		})
	}
}

// normalizeError записывает буферизованный ответ с ошибкой в едином формате.
// Единственная запись уровня WARN/ERROR об ошибке запроса.
func normalizeError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, status int, body []byte) {
	attrs := append(requestAttrs(r),
		slog.Int("status", status),
		slog.String("body", truncate(body, maxLoggedBody)),
	)

	if status >= http.StatusInternalServerError {
		logger.LogAttrs(r.Context(), slog.LevelError, "Ошибка сервера", attrs...)
		w.Header().Del("Content-Length")
		apierrors.WriteError(w, status, apierrors.MsgInternal)
		return
	}

	logger.LogAttrs(r.Context(), slog.LevelWarn, "Ошибка клиента", attrs...)

	if isJSON(w.Header().Get("Content-Type")) && needsEnvelope(body) {
		w.Header().Del("Content-Length")
		apierrors.Validation(w, status, json.RawMessage(bytes.TrimSpace(body)))
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// needsEnvelope сообщает, что тело — список или объект без ключа detail.
func needsEnvelope(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return false
	}
	switch trimmed[0] {
	case '[':
		return true
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return false
		}
		_, hasDetail := obj["detail"]
		return !hasDetail
	}
	return false
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
