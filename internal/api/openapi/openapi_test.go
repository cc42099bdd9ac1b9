package openapi

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/servicedesk/internal/api/generated"
)

func TestLoad(t *testing.T) {
	doc, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Info == nil || doc.Info.Title != "Servicedesk API" {
		t.Errorf("неожиданный info: %+v", doc.Info)
	}
	if len(Raw()) == 0 {
		t.Error("Raw() пуст")
	}
}

// TestRoutesMatchDocument — маршруты сгенерированного роутера совпадают с операциями документа.
func TestRoutesMatchDocument(t *testing.T) {
	doc, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var documented []string
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			if op.OperationID == "" {
				t.Errorf("%s %s: нет operationId", method, path)
			}
			documented = append(documented, strings.ToUpper(method)+" "+path)
		}
	}
	sort.Strings(documented)

	router, ok := generated.Handler(generated.Unimplemented{}).(chi.Routes)
	if !ok {
		t.Fatal("generated.Handler не возвращает chi.Routes")
	}
	var routed []string
	err = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routed = append(routed, method+" "+route)
		return nil
	})
	if err != nil {
		t.Fatalf("chi.Walk: %v", err)
	}
	sort.Strings(routed)

	if strings.Join(documented, "\n") != strings.Join(routed, "\n") {
		t.Errorf("маршруты расходятся с документом\nдокумент:\n%s\nроутер:\n%s",
			strings.Join(documented, "\n"), strings.Join(routed, "\n"))
	}
}

// TestSecuredOperations — все CRUD-операции требуют bearerAuth, операции аутентификации публичные.
func TestSecuredOperations(t *testing.T) {
	doc, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	public := map[string]bool{
		"/register/":      true,
		"/login/":         true,
		"/logout/":        true,
		"/token/refresh/": true,
		"/health/live":    true,
		"/health/ready":   true,
		"/metrics":        true,
		"/openapi.yaml":   true,
	}
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			secured := op.Security != nil && len(*op.Security) > 0
			if public[path] && secured {
				t.Errorf("%s %s: публичная операция требует аутентификацию", method, path)
			}
			if !public[path] && !secured {
				t.Errorf("%s %s: операция без bearerAuth", method, path)
			}
		}
	}
}
