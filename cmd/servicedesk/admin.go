package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bigkaa/servicedesk/internal/config"
	"github.com/bigkaa/servicedesk/internal/database"
	"github.com/bigkaa/servicedesk/internal/service"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции БД и выйти",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
				return err
			}
			logger := config.SetupLogger(cfg)
			if err := database.Migrate(cfg, logger); err != nil {
				logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
				return err
			}
			printf(cmd, "миграции применены\n")
			return nil
		},
	}
}

func newCreateUserCmd() *cobra.Command {
	var (
		username      string
		email         string
		password      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Создать пользователя API",
		Example: "  servicedesk create-user --username admin --email admin@example.com --password-stdin < secret.txt\n" +
			"  servicedesk create-user --username operator --password 'S3cret!'",
		RunE: withApp(true, func(cmd *cobra.Command, a *app) error {
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fail(cmd, fmt.Errorf("чтение пароля из stdin: %w", err))
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return fail(cmd, errors.New("пароль не задан: укажите --password или --password-stdin"))
			}

			in := service.RegisterInput{
				Username:  service.Val(username),
				Password:  service.Val(password),
				Password2: service.Val(password),
			}
			if email != "" {
				in.Email = service.Val(email)
			}

			u, err := a.auth.CreateUser(cmd.Context(), in)
			if err != nil {
				return fail(cmd, err)
			}

			a.logger.Info("Пользователь создан из командной строки", slog.String("username", u.Username))
			printf(cmd, "пользователь %s создан (id=%d)\n", u.Username, u.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&username, "username", "", "имя пользователя")
	cmd.Flags().StringVar(&email, "email", "", "адрес электронной почты")
	cmd.Flags().StringVar(&password, "password", "", "пароль (виден в списке процессов, предпочтительнее --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "прочитать пароль из первой строки stdin")
	_ = cmd.MarkFlagRequired("username")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	return cmd
}

func newFlushTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-tokens",
		Short: "Удалить истёкшие refresh token и записи об их отзыве",
		RunE: withApp(false, func(cmd *cobra.Command, a *app) error {
			n, err := a.auth.FlushExpired(cmd.Context())
			if err != nil {
				a.logger.Error("Ошибка очистки токенов", slog.String("error", err.Error()))
				return err
			}
			printf(cmd, "удалено токенов: %d\n", n)
			return nil
		}),
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, _ []string) {
			printf(cmd, "servicedesk %s (%s)\n", config.Version, runtime.Version())
		},
	}
}
