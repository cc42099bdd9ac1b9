package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/bigkaa/servicedesk/internal/auth"
	"github.com/bigkaa/servicedesk/internal/config"
	"github.com/bigkaa/servicedesk/internal/database"
	"github.com/bigkaa/servicedesk/internal/repository"
	"github.com/bigkaa/servicedesk/internal/service"
)

// connectTimeout — таймаут подключения к PostgreSQL для служебных команд.
const connectTimeout = 10 * time.Second

// newRootCmd собирает дерево команд.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "servicedesk",
		Short:         "REST API учёта заявок на обслуживание",
		Long:          "servicedesk — бригады, справочники и заявки с JWT-аутентификацией поверх PostgreSQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newCreateUserCmd(),
		newFlushTokensCmd(),
		newVersionCmd(),
	)
	return root
}

// app — общие зависимости подкоманд.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	tokens *auth.TokenManager
	auth   *service.AuthService
}

// withApp загружает конфигурацию, при необходимости применяет миграции,
// подключается к PostgreSQL и создаёт сервис аутентификации.
func withApp(migrate bool, run func(cmd *cobra.Command, a *app) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
			return err
		}
		logger := config.SetupLogger(cfg)
		logger = logger.With(slog.String("command", cmd.Name()))

		if migrate {
			logger.Info("Применение миграций БД...")
			if err := database.Migrate(cfg, logger); err != nil {
				logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
				return err
			}
		}

		connectCtx, cancel := context.WithTimeout(cmd.Context(), connectTimeout)
		defer cancel()
		pool, err := database.Connect(connectCtx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL",
				slog.String("database_url", cfg.RedactedDatabaseURL()),
				slog.String("error", err.Error()),
			)
			return err
		}
		defer pool.Close()

		tm, err := auth.NewTokenManager(cfg.SecretKey, cfg.AccessTokenLifetime, cfg.RefreshTokenLifetime)
		if err != nil {
			logger.Error("Ошибка инициализации JWT", slog.String("error", err.Error()))
			return err
		}
		authSvc := service.NewAuthService(
			repository.NewUserRepository(pool),
			repository.NewTokenRepository(pool),
			tm,
			service.NewBlacklistCache(cfg.BlacklistCacheSize, cfg.RefreshTokenLifetime),
			logger,
		)

		return run(cmd, &app{cfg: cfg, logger: logger, pool: pool, tokens: tm, auth: authSvc})
	}
}

// printf пишет в stdout команды.
func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

// fail печатает ошибку в stderr, код возврата задаёт main.
func fail(cmd *cobra.Command, err error) error {
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "ошибка:", err)
	return err
}
