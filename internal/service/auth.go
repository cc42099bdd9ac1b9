// auth.go — регистрация, вход, ротация refresh token и выход.
//
// Refresh token хранятся в outstanding_token; ротация отзывает старый
// токен и записывает новый в одной транзакции, поэтому повторное
// использование ротированного токена отклоняется.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/servicedesk/internal/auth"
	"github.com/bigkaa/servicedesk/internal/domain/model"
	"github.com/bigkaa/servicedesk/internal/repository"
)

// Ограничения полей пользователя.
const (
	usernameMaxLen = 150
	emailMaxLen    = 254
)

// authEventsTotal — события аутентификации по типу и результату.
var authEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sd_auth_events_total",
	Help: "Количество событий аутентификации по типу и результату.",
}, []string{"event", "result"})

// RegisterInput — входные данные регистрации.
type RegisterInput struct {
	Username  Field[string]
	Email     Field[string]
	Password  Field[string]
	Password2 Field[string]
}

// Session — пользователь и выпущенная для него пара токенов.
type Session struct {
	User   *model.User
	Tokens *auth.Pair
}

// AuthService — сервис аутентификации.
type AuthService struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	tm     *auth.TokenManager
	cache  *BlacklistCache
	logger *slog.Logger
	now    func() time.Time

	// verify сверяет пароль с хэшем; для неизвестного пользователя вызывается с dummyHash.
	verify    func(password, encodedHash string) (bool, error)
	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	tm *auth.TokenManager,
	cache *BlacklistCache,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		tm:     tm,
		cache:  cache,
		logger: logger.With(slog.String("component", "auth_service")),
		now:    time.Now,
		verify: auth.VerifyPassword,
	}
}

// RefreshTTL возвращает время жизни refresh token.
func (s *AuthService) RefreshTTL() time.Duration {
	return s.tm.RefreshTTL()
}

// Register проверяет данные, создаёт пользователя и выпускает пару токенов.
// Пользователь и его refresh token записываются в одной транзакции:
// при ошибке выпуска учётная запись не остаётся в БД.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	u, err := s.prepareUser(ctx, in)
	if err != nil {
		authEventsTotal.WithLabelValues("register", "rejected").Inc()
		return nil, err
	}

	var pair *auth.Pair
	err = s.users.CreateWithToken(ctx, u, func(created *model.User) (*model.OutstandingToken, error) {
		p, err := s.tm.IssuePair(created.ID)
		if err != nil {
			return nil, err
		}
		pair = p
		return outstandingFor(created.ID, p), nil
	})
	if err != nil {
		return nil, s.createError(u, err)
	}

	authEventsTotal.WithLabelValues("register", "ok").Inc()
	s.logger.Info("Зарегистрирован новый пользователь", slog.String("username", u.Username))
	return &Session{User: u, Tokens: pair}, nil
}

// CreateUser проверяет данные и создаёт активного пользователя без выпуска токенов.
func (s *AuthService) CreateUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	u, err := s.prepareUser(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, s.createError(u, err)
	}
	return u, nil
}

// prepareUser проверяет входные данные и возвращает ещё не сохранённого
// пользователя с хэшем пароля.
func (s *AuthService) prepareUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	verr := newValidationError()

	username, ok := checkString(verr, "username", in.Username, true, usernameMaxLen)
	if ok && !usernamePattern.MatchString(username) {
		verr.Add("username", MsgInvalidName)
		ok = false
	}
	if ok {
		if _, err := s.users.GetByUsername(ctx, username); err == nil {
			verr.Add("username", MsgUsernameTaken)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("проверка имени пользователя: %w", err)
		}
	}

	email := checkEmail(verr, in.Email)
	password, okPass := checkPassword(verr, "password", in.Password)
	password2, okPass2 := checkPassword(verr, "password2", in.Password2)

	if !verr.Empty() {
		return nil, verr
	}
	if okPass && okPass2 && password != password2 {
		return nil, FieldError("password", MsgPasswordsDiff)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("хэширование пароля: %w", err)
	}

	return &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}, nil
}

// createError переводит конфликт имени при вставке в ошибку поля username.
func (s *AuthService) createError(u *model.User, err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return FieldError("username", MsgUsernameTaken)
	}
	return fmt.Errorf("создание пользователя %s: %w", u.Username, err)
}

// Login проверяет логин и пароль, обновляет last_login и выпускает пару токенов.
// Неизвестный пользователь, неверный пароль и заблокированный пользователь
// неразличимы: ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		authEventsTotal.WithLabelValues("login", "rejected").Inc()
		return nil, ErrMissingCredentials
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Время ответа совпадает с неверным паролем: тот же Argon2id по decoyHash.
			_, _ = s.verify(password, s.decoyHash())
			authEventsTotal.WithLabelValues("login", "rejected").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	match, err := s.verify(password, u.PasswordHash)
	if err != nil {
		s.logger.Error("Некорректный хэш пароля в БД",
			slog.String("username", u.Username),
			slog.String("error", err.Error()),
		)
	}
	if !match || !u.IsActive {
		authEventsTotal.WithLabelValues("login", "rejected").Inc()
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("обновление last_login: %w", err)
	}
	u.LastLogin = &now

	session, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}

	authEventsTotal.WithLabelValues("login", "ok").Inc()
	s.logger.Info("Пользователь вошёл", slog.String("username", u.Username))
	return session, nil
}

// Refresh проверяет refresh token, отзывает его и выпускает новую пару.
// Любая причина отказа — ErrTokenInvalid.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	session, err := s.refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			authEventsTotal.WithLabelValues("refresh", "rejected").Inc()
		}
		return nil, err
	}
	authEventsTotal.WithLabelValues("refresh", "ok").Inc()
	return session, nil
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tm.Parse(ctx, refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err) //nolint:errorlint // намеренный двойной wrap
	}
	if s.cache.Revoked(claims.ID) {
		return nil, fmt.Errorf("%w: токен отозван", ErrTokenInvalid)
	}

	u, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	pair, err := s.tm.IssuePair(u.ID)
	if err != nil {
		return nil, err
	}
	next := outstandingFor(u.ID, pair)

	if err := s.tokens.Rotate(ctx, claims.ID, next); err != nil {
		if errors.Is(err, repository.ErrRevoked) {
			s.cache.Add(claims.ID)
			s.logger.Warn("Попытка повторного использования refresh token",
				slog.String("username", u.Username),
			)
			return nil, fmt.Errorf("%w: токен отозван", ErrTokenInvalid)
		}
		return nil, fmt.Errorf("ротация refresh token: %w", err)
	}
	s.cache.Add(claims.ID)

	s.logger.Info("Access token обновлён", slog.String("username", u.Username))
	return &Session{User: u, Tokens: pair}, nil
}

// Logout отзывает refresh token, если он действителен.
// Недействительный или пустой токен не является ошибкой.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.tm.Parse(ctx, refreshToken, auth.TokenRefresh)
	if err != nil {
		s.logger.Debug("Refresh token при выходе недействителен", slog.String("error", err.Error()))
		return nil
	}

	if err := s.tokens.Blacklist(ctx, claims.ID); err != nil && !errors.Is(err, repository.ErrRevoked) {
		return fmt.Errorf("отзыв refresh token: %w", err)
	}
	s.cache.Add(claims.ID)
	authEventsTotal.WithLabelValues("logout", "ok").Inc()
	return nil
}

// Authenticate проверяет access token и возвращает активного пользователя.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := s.tm.Parse(ctx, accessToken, auth.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err) //nolint:errorlint // намеренный двойной wrap
	}
	return s.activeUser(ctx, claims.UserID)
}

// FlushExpired удаляет истёкшие refresh token вместе с записями об отзыве.
func (s *AuthService) FlushExpired(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.now().UTC())
}

// activeUser возвращает пользователя, если он существует и активен.
func (s *AuthService) activeUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: пользователь %d не найден", ErrTokenInvalid, id)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: пользователь %d заблокирован", ErrTokenInvalid, id)
	}
	return u, nil
}

// issue выпускает пару токенов и записывает refresh token.
func (s *AuthService) issue(ctx context.Context, u *model.User) (*Session, error) {
	pair, err := s.tm.IssuePair(u.ID)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.CreateOutstanding(ctx, outstandingFor(u.ID, pair)); err != nil {
		return nil, fmt.Errorf("запись refresh token: %w", err)
	}
	return &Session{User: u, Tokens: pair}, nil
}

// outstandingFor — запись outstanding_token для refresh token из пары.
func outstandingFor(userID int64, pair *auth.Pair) *model.OutstandingToken {
	return &model.OutstandingToken{
		JTI:       pair.RefreshJTI,
		UserID:    userID,
		CreatedAt: pair.IssuedAt,
		ExpiresAt: pair.RefreshExpiresAt,
	}
}

// decoyHash возвращает хэш случайного пароля, вычисленный один раз.
// При ошибке хэширования возвращается пустая строка: verify всё равно
// отклонит пароль, но без затрат на Argon2id.
func (s *AuthService) decoyHash() string {
	s.dummyOnce.Do(func() {
		h, err := auth.HashPassword(uuid.NewString())
		if err != nil {
			s.logger.Error("Не удалось подготовить хэш для неизвестных пользователей",
				slog.String("error", err.Error()),
			)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// checkEmail проверяет необязательный адрес электронной почты.
func checkEmail(verr *ValidationError, f Field[string]) string {
	if !settable(verr, "email", f, false) {
		return ""
	}
	if f.Null {
		verr.Add("email", MsgNull)
		return ""
	}
	v := strings.TrimSpace(f.Value)
	if v == "" {
		return ""
	}
	if utf8.RuneCountInString(v) > emailMaxLen {
		verr.Add("email", msgMaxLength(emailMaxLen))
		return ""
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndex(v, "@")+1:], ".") {
		verr.Add("email", MsgInvalidEmail)
		return ""
	}
	return v
}

// checkPassword проверяет обязательный непустой пароль. Пробелы не отбрасываются.
func checkPassword(verr *ValidationError, name string, f Field[string]) (string, bool) {
	if !settable(verr, name, f, true) {
		return "", false
	}
	if f.Null {
		verr.Add(name, MsgNull)
		return "", false
	}
	if strings.TrimSpace(f.Value) == "" {
		verr.Add(name, MsgBlank)
		return "", false
	}
	return f.Value, true
}
