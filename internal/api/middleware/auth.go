// auth.go — Bearer JWT middleware servicedesk.
// Проверка выполняется только для операций с bearerAuth в OpenAPI:
// сгенерированная обёртка кладёт generated.BearerAuthScopes в контекст до вызова middleware.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/servicedesk/internal/api/errors"
	"github.com/bigkaa/servicedesk/internal/api/generated"
	"github.com/bigkaa/servicedesk/internal/auth"
	"github.com/bigkaa/servicedesk/internal/domain/model"
	"github.com/bigkaa/servicedesk/internal/service"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyUser — аутентифицированный пользователь в контексте запроса.
	ContextKeyUser contextKey = "user"
)

// Authenticator проверяет access token. Реализуется service.AuthService.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*model.User, error)
}

// UserFromContext возвращает пользователя, установленного BearerAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(ContextKeyUser).(*model.User)
	return u, ok && u != nil
}

// BearerAuth — middleware аутентификации по access token.
type BearerAuth struct {
	authn  Authenticator
	logger *slog.Logger
}

// NewBearerAuth создаёт middleware аутентификации.
func NewBearerAuth(authn Authenticator, logger *slog.Logger) *BearerAuth {
	return &BearerAuth{
		authn:  authn,
		logger: logger.With(slog.String("component", "bearer_auth")),
	}
}

// Middleware возвращает HTTP middleware.
// Операции без bearerAuth пропускаются без проверки.
func (a *BearerAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Context().Value(generated.BearerAuthScopes) == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				apierrors.Unauthorized(w, apierrors.MsgNotAuthenticated)
				return
			}
			if token == "" {
				apierrors.Unauthorized(w, apierrors.MsgTokenInvalid)
				return
			}

			user, err := a.authn.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrTokenInvalid) {
					a.logger.Debug("Отклонён access token",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
					apierrors.Unauthorized(w, apierrors.MsgTokenInvalid)
					return
				}
				a.logger.Error("Ошибка проверки access token", slog.String("error", err.Error()))
				apierrors.InternalError(w)
				return
			}

			setRequestUser(r.Context(), user.Username)
			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
