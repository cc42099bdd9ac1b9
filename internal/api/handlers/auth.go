// auth.go — обработчики регистрации, входа, обновления токена и выхода.
// Access token отдаётся в теле, refresh token — только в HTTP-only cookie.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/servicedesk/internal/api/errors"
	"github.com/bigkaa/servicedesk/internal/api/generated"
	"github.com/bigkaa/servicedesk/internal/auth"
	"github.com/bigkaa/servicedesk/internal/service"
)

// RefreshCookieName — имя cookie с refresh token.
const RefreshCookieName = "refresh_token"

// Ответы аутентификации.
const (
	msgRegistered        = "Пользователь успешно зарегистрирован"
	msgMissingLogin      = "Необходимо указать логин и пароль."
	msgInvalidLogin      = "Неверные учетные данные."
	msgRefreshMissing    = "Refresh token отсутствует."
	msgRefreshInvalid    = "Недействительный или истекший refresh token. Требуется повторный вход."
	msgLoggedOut         = "Успешный выход."
	anonymousDisplayName = "Неизвестный"
)

// CookieSettings — атрибуты cookie refresh_token.
type CookieSettings struct {
	// Domain — домен cookie (пусто — без Domain)
	Domain string
	// Secure — только HTTPS (false в режиме отладки)
	Secure bool
}

// setRefreshCookie устанавливает refresh token в cookie на время его жизни.
func (h *APIHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   int(h.auth.RefreshTTL() / time.Second),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearRefreshCookie удаляет cookie refresh_token.
func (h *APIHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RegisterUser — POST /register/.
func (h *APIHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	b, err := decodeBody(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	session, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username:  b.String("username"),
		Email:     b.String("email"),
		Password:  b.String("password"),
		Password2: b.String("password2"),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.setRefreshCookie(w, session.Tokens.Refresh)
	writeJSON(w, http.StatusCreated, generated.RegisterResponse{
		Message:     msgRegistered,
		AccessToken: session.Tokens.Access,
	})
}

// LoginUser — POST /login/.
func (h *APIHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	b, err := decodeBody(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	session, err := h.auth.Login(r.Context(), b.Text("username"), b.Text("password"))
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		apierrors.BadRequest(w, msgMissingLogin)
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		apierrors.BadRequest(w, msgInvalidLogin)
		return
	case err != nil:
		h.handleServiceError(w, r, err)
		return
	}

	h.setRefreshCookie(w, session.Tokens.Refresh)
	writeJSON(w, http.StatusOK, generated.TokenResponse{AccessToken: session.Tokens.Access})
}

// RefreshToken — POST /token/refresh/.
// Refresh token читается только из cookie; при ошибке cookie удаляется.
func (h *APIHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("Попытка обновления токена без refresh token cookie")
		apierrors.WriteError(w, http.StatusUnauthorized, msgRefreshMissing)
		return
	}

	session, err := h.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			h.logger.Warn("Недействительный refresh token", slog.String("error", err.Error()))
			h.clearRefreshCookie(w)
			apierrors.WriteError(w, http.StatusUnauthorized, msgRefreshInvalid)
			return
		}
		h.handleServiceError(w, r, err)
		return
	}

	h.setRefreshCookie(w, session.Tokens.Refresh)
	writeJSON(w, http.StatusOK, generated.TokenResponse{AccessToken: session.Tokens.Access})
}

// LogoutUser — POST /logout/.
// Всегда 200: cookie удаляется, действительный refresh token отзывается.
func (h *APIHandler) LogoutUser(w http.ResponseWriter, r *http.Request) {
	username := anonymousDisplayName
	if token, ok := auth.BearerToken(r.Header.Get("Authorization")); ok && token != "" {
		if u, err := h.auth.Authenticate(r.Context(), token); err == nil {
			username = u.Username
		}
	}

	if cookie, err := r.Cookie(RefreshCookieName); err == nil && cookie.Value != "" {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Error("Не удалось отозвать refresh token при выходе",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
		}
	}

	h.logger.Info("Пользователь вышел", slog.String("username", username))
	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, generated.Detail{Detail: msgLoggedOut})
}
