package main

import (
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/bigkaa/servicedesk/internal/api/handlers"
	"github.com/bigkaa/servicedesk/internal/api/middleware"
	"github.com/bigkaa/servicedesk/internal/api/openapi"
	"github.com/bigkaa/servicedesk/internal/config"
	"github.com/bigkaa/servicedesk/internal/database"
	"github.com/bigkaa/servicedesk/internal/repository"
	"github.com/bigkaa/servicedesk/internal/server"
	"github.com/bigkaa/servicedesk/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Применить миграции и запустить HTTP-сервер",
		RunE:  withApp(true, runServe),
	}
}

func runServe(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	cfg, logger, pool := a.cfg, a.logger, a.pool

	logger.Info("servicedesk запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.Bool("debug", cfg.Debug),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("DEPHEALTH_GROUP") == "" {
		logger.Warn("DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 1. Описание API: документ должен быть валидным до старта сервера
	if _, err := openapi.Load(ctx); err != nil {
		logger.Error("Некорректный OpenAPI документ", slog.String("error", err.Error()))
		return err
	}

	// 2. Repositories
	brigadeRepo := repository.NewBrigadeRepository(pool)
	locationRepo := repository.NewLocationRepository(pool)
	objectRepo := repository.NewObjectRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)
	applicationRepo := repository.NewApplicationRepository(pool)

	// 3. Services
	svc := handlers.Services{
		Brigades:  service.NewBrigadeService(brigadeRepo, logger),
		Locations: service.NewLookupService(locationRepo, logger),
		Objects:   service.NewLookupService(objectRepo, logger),
		Statuses:  service.NewLookupService(statusRepo, logger),
		Applications: service.NewApplicationService(
			applicationRepo, brigadeRepo,
			locationRepo, objectRepo, statusRepo,
			logger,
		),
		Auth: a.auth,
	}

	// 4. Фоновая очистка просроченных refresh token
	janitor := service.NewTokenJanitor(a.auth, cfg.TokenFlushInterval, logger)
	janitor.Start(ctx)
	defer janitor.Stop()

	// 5. topologymetrics — мониторинг PostgreSQL через существующий пул соединений
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	dephealthSvc, err := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     cfg.DephealthServiceID,
		Group:         cfg.DephealthGroup,
		Dependency:    cfg.DephealthDependency,
		DatabaseURL:   cfg.DatabaseURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, pgDB, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		defer dephealthSvc.Stop()
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 6. API handler (реализует generated.ServerInterface)
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), openapi.Raw())
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		svc,
		handlers.CookieSettings{Domain: cfg.CookieDomain, Secure: cfg.SecureCookies()},
		cfg.TimeZone,
		logger,
	)

	// 7. HTTP-сервер с graceful shutdown
	srv := server.New(cfg, logger, apiHandler, middleware.NewBearerAuth(a.auth, logger))
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		return err
	}

	logger.Info("servicedesk остановлен")
	return nil
}
