// Пакет server — HTTP-сервер servicedesk с graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/bigkaa/servicedesk/internal/api/errors"
	"github.com/bigkaa/servicedesk/internal/api/generated"
	"github.com/bigkaa/servicedesk/internal/api/handlers"
	"github.com/bigkaa/servicedesk/internal/api/middleware"
	"github.com/bigkaa/servicedesk/internal/config"
)

// Server — HTTP-сервер servicedesk.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// handler — реализация generated.ServerInterface.
// bearerAuth — middleware аутентификации (nil — без проверки токенов, для тестов).
func New(cfg *config.Config, logger *slog.Logger, handler generated.ServerInterface, bearerAuth *middleware.BearerAuth) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewRouter(cfg, logger, handler, bearerAuth),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
		cfg:    cfg,
	}
}

// unmanagedPrefixes — служебные пути: тело ответа не нормализуется,
// успешные запросы пишутся в журнал на DEBUG.
var unmanagedPrefixes = []string{"/health/", "/metrics"}

// NewRouter собирает chi router со всеми маршрутами и middleware.
func NewRouter(cfg *config.Config, logger *slog.Logger, handler generated.ServerInterface, bearerAuth *middleware.BearerAuth) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(chimw.RequestID)
	router.Use(middleware.RequestLogger(logger, unmanagedPrefixes...))
	router.Use(middleware.ErrorNormalizer(logger, unmanagedPrefixes...))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(middleware.CORSOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowAll:       cfg.CORSAllowAllOrigins,
	}))
	router.Use(middleware.AllowedHosts(cfg.AllowedHosts))

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.MethodNotAllowed(w, r.Method)
	})

	// Аутентификация выполняется внутри сгенерированных обёрток,
	// после того как они отметили операцию с bearerAuth.
	var opMiddlewares []generated.MiddlewareFunc
	if bearerAuth != nil {
		opMiddlewares = append(opMiddlewares, bearerAuth.Middleware())
	}

	// Все маршруты через HandlerWithOptions (oapi-codegen chi-server).
	generated.HandlerWithOptions(handler, generated.ChiServerOptions{
		BaseRouter:       router,
		Middlewares:      opMiddlewares,
		ErrorHandlerFunc: handlers.InvalidParamHandler,
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
