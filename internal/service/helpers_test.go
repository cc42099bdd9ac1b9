package service

import (
	"errors"
	"log/slog"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/bigkaa/servicedesk/internal/auth"
	"github.com/bigkaa/servicedesk/internal/domain/model"
	"github.com/bigkaa/servicedesk/internal/repository/repotest"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// services — набор сервисов поверх одного in-memory хранилища.
type services struct {
	store     *repotest.Store
	brigades  *BrigadeService
	locations *LookupService
	objects   *LookupService
	statuses  *LookupService
	apps      *ApplicationService
	auth      *AuthService
}

func newServices(t *testing.T) *services {
	t.Helper()

	store := repotest.NewStore()
	logger := testLogger()

	tm, err := auth.NewTokenManager("test-secret-key", 5*time.Hour, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() ошибка: %v", err)
	}

	return &services{
		store:     store,
		brigades:  NewBrigadeService(store.Brigades(), logger),
		locations: NewLookupService(store.Lookups(model.KindLocation), logger),
		objects:   NewLookupService(store.Lookups(model.KindObject), logger),
		statuses:  NewLookupService(store.Lookups(model.KindStatus), logger),
		apps: NewApplicationService(
			store.Applications(),
			store.Brigades(),
			store.Lookups(model.KindLocation),
			store.Lookups(model.KindObject),
			store.Lookups(model.KindStatus),
			logger,
		),
		auth: NewAuthService(store.Users(), store.Tokens(), tm, NewBlacklistCache(100, time.Hour), logger),
	}
}

// fieldErrors извлекает ошибки полей или проваливает тест.
func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ошибка = %v, ожидали ErrValidation", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ошибка %T не является *ValidationError", err)
	}
	return verr.Fields
}

// wantFieldError проверяет наличие сообщения у поля.
func wantFieldError(t *testing.T, fields map[string][]string, field, msg string) {
	t.Helper()
	if !slices.Contains(fields[field], msg) {
		t.Errorf("поле %s: сообщения %v, ожидали %q", field, fields[field], msg)
	}
}
