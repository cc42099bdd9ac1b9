package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigkaa/servicedesk/internal/api/generated"
)

type staticChecker struct {
	status, message string
}

func (c staticChecker) CheckReady() (string, string) { return c.status, c.message }

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		checker    ReadinessChecker
		wantStatus int
		wantResult string
	}{
		{"ok", staticChecker{"ok", ""}, http.StatusOK, "ok"},
		{"degraded", staticChecker{"degraded", "медленно"}, http.StatusOK, "degraded"},
		{"fail", staticChecker{"fail", "нет соединения"}, http.StatusServiceUnavailable, "fail"},
		{"nil", nil, http.StatusServiceUnavailable, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checker, nil)
			w := httptest.NewRecorder()
			h.HealthReady(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("статус = %d, ожидался %d", w.Code, tt.wantStatus)
			}
			var resp generated.HealthReadyResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("тело не JSON: %v", err)
			}
			if resp.Status != tt.wantResult || resp.Checks.Postgresql.Status != tt.wantResult {
				t.Errorf("ответ = %+v", resp)
			}
			if resp.Service != "servicedesk" {
				t.Errorf("service = %q", resp.Service)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(nil, nil)
	w := httptest.NewRecorder()
	h.HealthLive(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d", w.Code)
	}
	var resp generated.HealthLiveResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Status != "ok" {
		t.Errorf("ответ = %s", w.Body.String())
	}
}

func TestOverallStatus(t *testing.T) {
	if got := overallStatus("ok", "degraded"); got != "degraded" {
		t.Errorf("ok+degraded = %q", got)
	}
	if got := overallStatus("degraded", "fail"); got != "fail" {
		t.Errorf("degraded+fail = %q", got)
	}
	if got := overallStatus(); got != "ok" {
		t.Errorf("пусто = %q", got)
	}
}
