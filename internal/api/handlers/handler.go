// handler.go — основной обработчик API, реализующий generated.ServerInterface.
// Объединяет все доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/servicedesk/internal/api/errors"
	"github.com/bigkaa/servicedesk/internal/api/generated"
	"github.com/bigkaa/servicedesk/internal/service"
)

// Проверка реализации интерфейса на этапе компиляции.
var _ generated.ServerInterface = (*APIHandler)(nil)

// Services — сервисы, с которыми работает API.
type Services struct {
	Brigades     *service.BrigadeService
	Locations    *service.LookupService
	Objects      *service.LookupService
	Statuses     *service.LookupService
	Applications *service.ApplicationService
	Auth         *service.AuthService
}

// APIHandler — основной обработчик API servicedesk.
// Реализует generated.ServerInterface, делегируя запросы в сервисный слой.
type APIHandler struct {
	health       *HealthHandler
	brigades     *service.BrigadeService
	locations    *service.LookupService
	objects      *service.LookupService
	statuses     *service.LookupService
	applications *service.ApplicationService
	auth         *service.AuthService
	cookie       CookieSettings
	// loc — часовой пояс для вывода времени и разбора значений без смещения.
	loc    *time.Location
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	svc Services,
	cookie CookieSettings,
	loc *time.Location,
	logger *slog.Logger,
) *APIHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &APIHandler{
		health:       health,
		brigades:     svc.Brigades,
		locations:    svc.Locations,
		objects:      svc.Objects,
		statuses:     svc.Statuses,
		applications: svc.Applications,
		auth:         svc.Auth,
		cookie:       cookie,
		loc:          loc,
		logger:       logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// GetOpenAPISpec — описание API (делегируется в HealthHandler).
func (h *APIHandler) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	h.health.GetOpenAPISpec(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeRequestError отвечает на ошибку разбора тела запроса.
func writeRequestError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if !errors.As(err, &reqErr) {
		apierrors.BadRequest(w, err.Error())
		return
	}
	if reqErr.fields != nil {
		writeJSON(w, reqErr.status, reqErr.fields)
		return
	}
	apierrors.WriteError(w, reqErr.status, reqErr.detail)
}

// handleServiceError маппит ошибки сервисного слоя в HTTP-ответы.
// Ошибки валидации отдаются как объект полей, конверт добавляет ErrorNormalizer.
func (h *APIHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w)
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w)
	}
}

// InvalidParamHandler — обработчик ошибок разбора параметров пути.
// Нечисловой id не соответствует ни одной записи: 404.
func InvalidParamHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	apierrors.NotFound(w)
}
