// dephealth.go — наблюдение за базой servicedesk через topologymetrics SDK.
//
// Серии app_dependency_* публикуются на /metrics; CheckReady сводит их
// к статусу ok/degraded/fail для журнала и диагностики.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthConfig — параметры мониторинга, заполняются из config.Config.
type DephealthConfig struct {
	// ServiceID — вершина графа (DEPHEALTH_SERVICE_ID)
	ServiceID string
	// Group — группа в метриках (DEPHEALTH_GROUP)
	Group string
	// Dependency — имя зависимости PostgreSQL (DEPHEALTH_DEPENDENCY_NAME)
	Dependency string
	// DatabaseURL — источник лейблов host/port, соединения не открывает
	DatabaseURL string
	// CheckInterval — период проверки (DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
	// Registerer — registry метрик; nil — глобальный
	Registerer prometheus.Registerer
}

func (c DephealthConfig) validate() error {
	switch {
	case c.ServiceID == "":
		return errors.New("dephealth: не задан идентификатор сервиса")
	case c.Dependency == "":
		return errors.New("dephealth: не задано имя зависимости")
	case c.DatabaseURL == "":
		return errors.New("dephealth: не задан URL базы данных")
	case c.CheckInterval <= 0:
		return fmt.Errorf("dephealth: интервал проверки %s должен быть положительным", c.CheckInterval)
	}
	return nil
}

// DephealthService — периодическая проверка PostgreSQL через пул приложения.
type DephealthService struct {
	dh         *dephealth.DepHealth
	dependency string
	logger     *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга.
// db — *sql.DB поверх pgxpool (stdlib.OpenDBFromPool): проверка идёт
// через те же соединения, что и запросы API.
func NewDephealthService(cfg DephealthConfig, db *sql.DB, logger *slog.Logger) (*DephealthService, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errors.New("dephealth: нет соединения с БД")
	}

	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.AddDependency(cfg.Dependency, dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(db)),
			dephealth.FromURL(cfg.DatabaseURL),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
		),
	}
	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, fmt.Errorf("dephealth: %w", err)
	}

	return &DephealthService{
		dh:         dh,
		dependency: cfg.Dependency,
		logger: logger.With(
			slog.String("component", "dephealth"),
			slog.String("dependency", cfg.Dependency),
		),
	}, nil
}

// Start запускает проверки в фоне.
func (ds *DephealthService) Start(ctx context.Context) error {
	if err := ds.dh.Start(ctx); err != nil {
		return err
	}
	ds.logger.Info("Мониторинг базы данных запущен")
	return nil
}

// Stop останавливает проверки и пишет последний известный статус.
func (ds *DephealthService) Stop() {
	status, message := ds.CheckReady()
	ds.dh.Stop()
	ds.logger.Info("Мониторинг базы данных остановлен",
		slog.String("last_status", status),
		slog.String("message", message),
	)
}

// Health — состояние по ключам "<dependency>:<host>:<port>".
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// CheckReady сводит результаты проверок к статусу:
// "degraded" — проверок ещё не было, "fail" — хотя бы один endpoint недоступен.
func (ds *DephealthService) CheckReady() (status string, message string) {
	var failed []string
	seen := 0
	for key, ok := range ds.dh.Health() {
		if !strings.HasPrefix(key, ds.dependency+":") {
			continue
		}
		seen++
		if !ok {
			failed = append(failed, strings.TrimPrefix(key, ds.dependency+":"))
		}
	}

	switch {
	case seen == 0:
		return "degraded", "проверка ещё не выполнялась"
	case len(failed) > 0:
		sort.Strings(failed)
		return "fail", "недоступен: " + strings.Join(failed, ", ")
	}
	return "ok", ""
}
