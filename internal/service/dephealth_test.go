package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
)

// unreachablePG — адрес, на котором PostgreSQL заведомо не слушает.
const unreachablePG = "postgres://sd:sd@127.0.0.1:1/servicedesk?sslmode=disable"

func openUnreachableDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", unreachablePG)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testDephealthConfig(interval time.Duration) DephealthConfig {
	return DephealthConfig{
		ServiceID:     "servicedesk-test",
		Group:         "servicedesk",
		Dependency:    "desk-db",
		DatabaseURL:   unreachablePG,
		CheckInterval: interval,
		Registerer:    prometheus.NewRegistry(),
	}
}

func TestNewDephealthService_InvalidConfig(t *testing.T) {
	db := openUnreachableDB(t)

	tests := []struct {
		name   string
		mutate func(*DephealthConfig)
	}{
		{"без имени сервиса", func(c *DephealthConfig) { c.ServiceID = "" }},
		{"без имени зависимости", func(c *DephealthConfig) { c.Dependency = "" }},
		{"без URL", func(c *DephealthConfig) { c.DatabaseURL = "" }},
		{"нулевой интервал", func(c *DephealthConfig) { c.CheckInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testDephealthConfig(time.Second)
			tt.mutate(&cfg)
			if _, err := NewDephealthService(cfg, db, testLogger()); err == nil {
				t.Error("ожидалась ошибка конфигурации")
			}
		})
	}

	if _, err := NewDephealthService(testDephealthConfig(time.Second), nil, testLogger()); err == nil {
		t.Error("без *sql.DB ожидалась ошибка")
	}
}

func TestDephealthService_NotCheckedYet(t *testing.T) {
	ds, err := NewDephealthService(testDephealthConfig(5*time.Second), openUnreachableDB(t), testLogger())
	if err != nil {
		t.Fatalf("Ошибка создания DephealthService: %v", err)
	}
	if status, _ := ds.CheckReady(); status == "ok" {
		t.Error("CheckReady() до первой проверки не должен возвращать ok")
	}
}

func TestDephealthService_UnhealthyPostgres(t *testing.T) {
	ds, err := NewDephealthService(testDephealthConfig(time.Second), openUnreachableDB(t), testLogger())
	if err != nil {
		t.Fatalf("Ошибка создания DephealthService: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ds.Start(ctx); err != nil {
		t.Fatalf("Ошибка запуска: %v", err)
	}
	defer ds.Stop()

	// Интервал 1s + запас на первую проверку
	time.Sleep(3 * time.Second)

	health := ds.Health()
	found := false
	for key, ok := range health {
		if strings.HasPrefix(key, "desk-db:") {
			found = true
			if ok {
				t.Errorf("health = true для ключа %q, ожидалось false", key)
			}
		}
	}
	if !found {
		t.Fatalf("Нет записи для desk-db в Health(), keys=%v", healthKeys(health))
	}

	status, message := ds.CheckReady()
	if status != "fail" || !strings.Contains(message, "127.0.0.1") {
		t.Errorf("CheckReady() = %q, %q; ожидали fail с адресом", status, message)
	}
}

// healthKeys возвращает ключи карты health для сообщений об ошибках.
func healthKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
