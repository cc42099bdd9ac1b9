package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apierrors "github.com/bigkaa/servicedesk/internal/api/errors"
	"github.com/bigkaa/servicedesk/internal/api/handlers"
	"github.com/bigkaa/servicedesk/internal/api/middleware"
	"github.com/bigkaa/servicedesk/internal/api/openapi"
	"github.com/bigkaa/servicedesk/internal/auth"
	"github.com/bigkaa/servicedesk/internal/config"
	"github.com/bigkaa/servicedesk/internal/domain/model"
	"github.com/bigkaa/servicedesk/internal/repository/repotest"
	"github.com/bigkaa/servicedesk/internal/service"
)

// testAPI — роутер поверх in-memory хранилища.
type testAPI struct {
	t      *testing.T
	router http.Handler
	store  *repotest.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loc, err := time.LoadLocation("Europe/Chisinau")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	cfg := &config.Config{
		Port:                 8000,
		AllowedHosts:         []string{"example.com", "localhost"},
		TimeZone:             loc,
		SecretKey:            "server-test-secret",
		AccessTokenLifetime:  5 * time.Hour,
		RefreshTokenLifetime: 7 * 24 * time.Hour,
		CORSAllowAllOrigins:  true,
		ShutdownTimeout:      time.Second,
	}

	store := repotest.NewStore()
	tm, err := auth.NewTokenManager(cfg.SecretKey, cfg.AccessTokenLifetime, cfg.RefreshTokenLifetime)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	authSvc := service.NewAuthService(store.Users(), store.Tokens(), tm,
		service.NewBlacklistCache(100, cfg.RefreshTokenLifetime), logger)

	svc := handlers.Services{
		Brigades:  service.NewBrigadeService(store.Brigades(), logger),
		Locations: service.NewLookupService(store.Lookups(model.KindLocation), logger),
		Objects:   service.NewLookupService(store.Lookups(model.KindObject), logger),
		Statuses:  service.NewLookupService(store.Lookups(model.KindStatus), logger),
		Applications: service.NewApplicationService(
			store.Applications(), store.Brigades(),
			store.Lookups(model.KindLocation), store.Lookups(model.KindObject), store.Lookups(model.KindStatus),
			logger,
		),
		Auth: authSvc,
	}
	health := handlers.NewHealthHandler(nil, openapi.Raw())
	h := handlers.NewAPIHandler(health, svc, handlers.CookieSettings{Secure: true}, loc, logger)

	return &testAPI{
		t:      t,
		router: NewRouter(cfg, logger, h, middleware.NewBearerAuth(authSvc, logger)),
		store:  store,
	}
}

// do выполняет запрос; token — access token, cookies добавляются к запросу.
func (a *testAPI) do(method, path, body, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	return w
}

// register регистрирует пользователя и возвращает access token и refresh cookie.
func (a *testAPI) register(username string) (string, *http.Cookie) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/register/",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"Secret-123","password2":"Secret-123"}`, "")
	if w.Code != http.StatusCreated {
		a.t.Fatalf("регистрация: статус %d, тело %s", w.Code, w.Body.String())
	}
	var resp struct {
		Message     string `json:"message"`
		AccessToken string `json:"access_token"`
	}
	decode(a.t, w, &resp)
	if resp.AccessToken == "" || resp.Message == "" {
		a.t.Fatalf("неполный ответ регистрации: %s", w.Body.String())
	}
	return resp.AccessToken, refreshCookie(a.t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("тело не JSON: %v (%s)", err, w.Body.String())
	}
}

func detailOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	decode(t, w, &body)
	return body.Detail
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == handlers.RefreshCookieName {
			return c
		}
	}
	t.Fatalf("нет cookie %s в ответе", handlers.RefreshCookieName)
	return nil
}

func TestRegister_SetsRefreshCookie(t *testing.T) {
	api := newTestAPI(t)
	_, cookie := api.register("alice")

	if !cookie.HttpOnly || !cookie.Secure {
		t.Errorf("cookie должен быть HttpOnly и Secure: %+v", cookie)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, ожидался Lax", cookie.SameSite)
	}
	if cookie.MaxAge != 7*24*3600 {
		t.Errorf("MaxAge = %d", cookie.MaxAge)
	}
	if cookie.Path != "/" || cookie.Value == "" {
		t.Errorf("cookie = %+v", cookie)
	}
}

func TestRegister_Validation(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/register/",
		`{"username":"bob","password":"one","password2":"two"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400", w.Code)
	}
	var body struct {
		Detail string              `json:"detail"`
		Errors map[string][]string `json:"errors"`
	}
	decode(t, w, &body)
	if body.Detail != apierrors.MsgValidation {
		t.Errorf("detail = %q", body.Detail)
	}
	if got := body.Errors["password"]; len(got) != 1 || got[0] != service.MsgPasswordsDiff {
		t.Errorf("errors = %v", body.Errors)
	}

	api.register("bob")
	w = api.do(http.MethodPost, "/register/",
		`{"username":"bob","password":"x","password2":"x"}`, "")
	decode(t, w, &body)
	if got := body.Errors["username"]; len(got) != 1 || got[0] != service.MsgUsernameTaken {
		t.Errorf("повторная регистрация: errors = %v", body.Errors)
	}
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)
	api.register("carol")

	w := api.do(http.MethodPost, "/login/", `{"username":"carol"}`, "")
	if w.Code != http.StatusBadRequest || detailOf(t, w) != "Необходимо указать логин и пароль." {
		t.Errorf("без пароля: %d %s", w.Code, w.Body.String())
	}

	w = api.do(http.MethodPost, "/login/", `{"username":"carol","password":"wrong"}`, "")
	if w.Code != http.StatusBadRequest || detailOf(t, w) != "Неверные учетные данные." {
		t.Errorf("неверный пароль: %d %s", w.Code, w.Body.String())
	}

	w = api.do(http.MethodPost, "/login/", `{"username":"carol","password":"Secret-123"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("вход: статус %d, тело %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &resp)
	refreshCookie(t, w)

	if w := api.do(http.MethodGet, "/brigades/", "", resp.AccessToken); w.Code != http.StatusOK {
		t.Errorf("GET /brigades/ с новым токеном: %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/applications/", "", "")
	if w.Code != http.StatusUnauthorized || detailOf(t, w) != apierrors.MsgNotAuthenticated {
		t.Errorf("без токена: %d %s", w.Code, w.Body.String())
	}

	w = api.do(http.MethodGet, "/applications/", "", "not-a-jwt")
	if w.Code != http.StatusUnauthorized || detailOf(t, w) != apierrors.MsgTokenInvalid {
		t.Errorf("мусорный токен: %d %s", w.Code, w.Body.String())
	}

	// Refresh token не принимается вместо access token.
	_, cookie := api.register("dave")
	w = api.do(http.MethodGet, "/applications/", "", cookie.Value)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("refresh вместо access: %d", w.Code)
	}
}

func TestRefreshRotation(t *testing.T) {
	api := newTestAPI(t)
	_, cookie := api.register("erin")

	w := api.do(http.MethodPost, "/token/refresh/", "", "")
	if w.Code != http.StatusUnauthorized || detailOf(t, w) != "Refresh token отсутствует." {
		t.Errorf("без cookie: %d %s", w.Code, w.Body.String())
	}

	w = api.do(http.MethodPost, "/token/refresh/", "", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("обновление: статус %d, тело %s", w.Code, w.Body.String())
	}
	next := refreshCookie(t, w)
	if next.Value == cookie.Value {
		t.Error("refresh token не ротирован")
	}

	// Повторное использование старого токена отклоняется, cookie очищается.
	w = api.do(http.MethodPost, "/token/refresh/", "", "", cookie)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("повтор: статус %d", w.Code)
	}
	if got := detailOf(t, w); got != "Недействительный или истекший refresh token. Требуется повторный вход." {
		t.Errorf("detail = %q", got)
	}
	if cleared := refreshCookie(t, w); cleared.MaxAge >= 0 {
		t.Errorf("cookie не очищен: %+v", cleared)
	}

	if w := api.do(http.MethodPost, "/token/refresh/", "", "", next); w.Code != http.StatusOK {
		t.Errorf("новый токен: статус %d", w.Code)
	}
}

func TestLogout(t *testing.T) {
	api := newTestAPI(t)

	// Без аутентификации.
	w := api.do(http.MethodPost, "/logout/", "", "")
	if w.Code != http.StatusOK || detailOf(t, w) != "Успешный выход." {
		t.Fatalf("выход без токена: %d %s", w.Code, w.Body.String())
	}
	if c := refreshCookie(t, w); c.MaxAge >= 0 {
		t.Errorf("cookie не очищен: %+v", c)
	}

	// Недействительный bearer игнорируется.
	if w := api.do(http.MethodPost, "/logout/", "", "garbage"); w.Code != http.StatusOK {
		t.Errorf("выход с мусорным токеном: %d", w.Code)
	}

	// Refresh token после выхода недействителен.
	access, cookie := api.register("frank")
	if w := api.do(http.MethodPost, "/logout/", "", access, cookie); w.Code != http.StatusOK {
		t.Fatalf("выход: %d", w.Code)
	}
	if w := api.do(http.MethodPost, "/token/refresh/", "", "", cookie); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh после выхода: %d", w.Code)
	}
}

func TestLookupDuplicate(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("grace")

	w := api.do(http.MethodPost, "/locations/", `{"location":"Цех 1"}`, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("создание: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		ID       int64  `json:"id"`
		Location string `json:"location"`
	}
	decode(t, w, &created)
	if created.ID == 0 || created.Location != "Цех 1" {
		t.Errorf("ответ = %+v", created)
	}

	w = api.do(http.MethodPost, "/locations/", `{"location":"Цех 1"}`, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("дубликат: %d", w.Code)
	}
	var body struct {
		Detail string              `json:"detail"`
		Errors map[string][]string `json:"errors"`
	}
	decode(t, w, &body)
	want := "Местоположение с таким Местоположение уже существует."
	if body.Detail != apierrors.MsgValidation || len(body.Errors["location"]) != 1 || body.Errors["location"][0] != want {
		t.Errorf("ответ = %s", w.Body.String())
	}
}

func TestBrigadeCRUD(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("heidi")

	w := api.do(http.MethodPost, "/brigades/", `{"brigade":"7"}`, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("создание: %d %s", w.Code, w.Body.String())
	}
	var b struct {
		ID      int64 `json:"id"`
		Brigade int   `json:"brigade"`
	}
	decode(t, w, &b)
	if b.Brigade != 7 {
		t.Errorf("brigade = %d", b.Brigade)
	}
	path := "/brigades/" + itoa(b.ID) + "/"

	if w := api.do(http.MethodPut, path, `{}`, token); w.Code != http.StatusBadRequest {
		t.Errorf("PUT без полей: %d", w.Code)
	}
	if w := api.do(http.MethodPatch, path, `{}`, token); w.Code != http.StatusOK {
		t.Errorf("PATCH без полей: %d", w.Code)
	}
	if w := api.do(http.MethodPut, path, `{"brigade":0}`, token); w.Code != http.StatusBadRequest {
		t.Errorf("PUT brigade=0: %d", w.Code)
	}
	w = api.do(http.MethodPut, path, `{"brigade":9}`, token)
	decode(t, w, &b)
	if w.Code != http.StatusOK || b.Brigade != 9 {
		t.Errorf("PUT: %d %+v", w.Code, b)
	}

	if w := api.do(http.MethodDelete, path, "", token); w.Code != http.StatusNoContent {
		t.Errorf("DELETE: %d", w.Code)
	}
	w = api.do(http.MethodGet, path, "", token)
	if w.Code != http.StatusNotFound || detailOf(t, w) != apierrors.MsgNotFound {
		t.Errorf("GET удалённой: %d %s", w.Code, w.Body.String())
	}
}

func TestApplicationFlow(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("ivan")

	ids := map[string]int64{}
	for path, body := range map[string]string{
		"/brigades/":  `{"brigade":3}`,
		"/locations/": `{"location":"Подстанция"}`,
		"/objects/":   `{"object":"Трансформатор"}`,
		"/statuses/":  `{"status":"Открыта"}`,
	} {
		w := api.do(http.MethodPost, path, body, token)
		if w.Code != http.StatusCreated {
			t.Fatalf("POST %s: %d %s", path, w.Code, w.Body.String())
		}
		var created struct {
			ID int64 `json:"id"`
		}
		decode(t, w, &created)
		ids[path] = created.ID
	}

	// Несуществующие ссылки: отдельная ошибка на каждое поле.
	w := api.do(http.MethodPost, "/applications/",
		`{"identifier":"A-1","start_time":"2024-03-01T10:00:00","brigade":999,"location":999,"object_instance":999,"status":999}`, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("несуществующие ссылки: %d", w.Code)
	}
	var verr struct {
		Errors map[string][]string `json:"errors"`
	}
	decode(t, w, &verr)
	for _, field := range []string{"brigade", "location", "object_instance", "status"} {
		if len(verr.Errors[field]) == 0 {
			t.Errorf("нет ошибки для %s: %v", field, verr.Errors)
		}
	}

	body := `{"identifier":"A-1","start_time":"2024-03-01T10:00:00","brigade":` + itoa(ids["/brigades/"]) +
		`,"location":` + itoa(ids["/locations/"]) + `,"object_instance":` + itoa(ids["/objects/"]) +
		`,"status":` + itoa(ids["/statuses/"]) + `}`
	w = api.do(http.MethodPost, "/applications/", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("создание заявки: %d %s", w.Code, w.Body.String())
	}
	var app struct {
		ID            int64   `json:"id"`
		StartTime     string  `json:"start_time"`
		EndTime       *string `json:"end_time"`
		BrigadeNumber *int    `json:"brigade_number"`
		LocationName  string  `json:"location_name"`
		Correction    *string `json:"correction"`
	}
	decode(t, w, &app)
	// Время без смещения трактуется в Europe/Chisinau (UTC+2 в марте).
	if app.StartTime != "2024-03-01T10:00:00+02:00" {
		t.Errorf("start_time = %q", app.StartTime)
	}
	if app.EndTime != nil || app.Correction != nil {
		t.Errorf("end_time/correction должны быть null: %s", w.Body.String())
	}
	if app.BrigadeNumber == nil || *app.BrigadeNumber != 3 || app.LocationName != "Подстанция" {
		t.Errorf("поля отображения: %s", w.Body.String())
	}

	// Удаление бригады обнуляет ссылку, удаление местоположения удаляет заявку.
	api.do(http.MethodDelete, "/brigades/"+itoa(ids["/brigades/"])+"/", "", token)
	w = api.do(http.MethodGet, "/applications/"+itoa(app.ID)+"/", "", token)
	var after struct {
		Brigade *int64 `json:"brigade"`
	}
	decode(t, w, &after)
	if after.Brigade != nil {
		t.Errorf("brigade после удаления бригады = %v", *after.Brigade)
	}

	api.do(http.MethodDelete, "/locations/"+itoa(ids["/locations/"])+"/", "", token)
	if w := api.do(http.MethodGet, "/applications/"+itoa(app.ID)+"/", "", token); w.Code != http.StatusNotFound {
		t.Errorf("заявка после удаления местоположения: %d", w.Code)
	}
}

func TestRouterErrors(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("judy")

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{"неизвестный путь", http.MethodGet, "/nope/", "", http.StatusNotFound, apierrors.MsgNotFound},
		{"путь без слеша", http.MethodGet, "/brigades", "", http.StatusNotFound, apierrors.MsgNotFound},
		{"нечисловой id", http.MethodGet, "/brigades/abc/", "", http.StatusNotFound, apierrors.MsgNotFound},
		{"неподдерживаемый метод", http.MethodPut, "/brigades/", "", http.StatusMethodNotAllowed, `Метод "PUT" не разрешен.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(tt.method, tt.path, tt.body, token)
			if w.Code != tt.wantStatus {
				t.Fatalf("статус = %d, ожидался %d", w.Code, tt.wantStatus)
			}
			if got := detailOf(t, w); got != tt.wantDetail {
				t.Errorf("detail = %q, ожидался %q", got, tt.wantDetail)
			}
		})
	}

	t.Run("некорректный JSON", func(t *testing.T) {
		w := api.do(http.MethodPost, "/brigades/", `{"brigade":`, token)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("статус = %d", w.Code)
		}
		if got := detailOf(t, w); !strings.HasPrefix(got, "Некорректный JSON: ") {
			t.Errorf("detail = %q", got)
		}
	})
}

func TestHostAndHeaders(t *testing.T) {
	api := newTestAPI(t)

	r := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	r.Host = "evil.test"
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("чужой Host: %d", w.Code)
	}

	w = api.do(http.MethodGet, "/health/live", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health/live: %d", w.Code)
	}
	if w.Header().Get("Content-Security-Policy") == "" || w.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("нет заголовков безопасности: %v", w.Header())
	}
}

func TestPublicEndpoints(t *testing.T) {
	api := newTestAPI(t)

	// Без PostgreSQL readiness — fail, тело health не нормализуется.
	w := api.do(http.MethodGet, "/health/ready", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health/ready: %d", w.Code)
	}
	var ready struct {
		Status string `json:"status"`
	}
	decode(t, w, &ready)
	if ready.Status != "fail" {
		t.Errorf("status = %q", ready.Status)
	}

	w = api.do(http.MethodGet, "/openapi.yaml", "", "")
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("openapi: 3.0.3")) {
		t.Errorf("openapi.yaml: %d", w.Code)
	}

	if w := api.do(http.MethodGet, "/metrics", "", ""); w.Code != http.StatusOK {
		t.Errorf("metrics: %d", w.Code)
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
