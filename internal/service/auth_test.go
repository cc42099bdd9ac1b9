package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/servicedesk/internal/auth"
	"github.com/bigkaa/servicedesk/internal/repository"
)

func registerInput(username, password string) RegisterInput {
	return RegisterInput{
		Username:  Val(username),
		Email:     Val(username + "@example.com"),
		Password:  Val(password),
		Password2: Val(password),
	}
}

func TestAuthService_Register(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	session, err := s.auth.Register(ctx, registerInput("operator", "pa55word"))
	if err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}
	if session.Tokens.Access == "" || session.Tokens.Refresh == "" {
		t.Error("токены не выпущены")
	}
	if session.User.PasswordHash == "pa55word" {
		t.Error("пароль сохранён в открытом виде")
	}

	if _, err := s.auth.Authenticate(ctx, session.Tokens.Access); err != nil {
		t.Errorf("Authenticate() ошибка: %v", err)
	}

	_, err = s.auth.Register(ctx, registerInput("operator", "other-pass"))
	wantFieldError(t, fieldErrors(t, err), "username", MsgUsernameTaken)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	mismatch := registerInput("user1", "one")
	mismatch.Password2 = Val("two")
	_, err := s.auth.Register(ctx, mismatch)
	fields := fieldErrors(t, err)
	wantFieldError(t, fields, "password", MsgPasswordsDiff)
	if len(fields) != 1 {
		t.Errorf("ожидали только ошибку password, получили %v", fields)
	}

	tests := []struct {
		name  string
		in    RegisterInput
		field string
		msg   string
	}{
		{"нет username", RegisterInput{Password: Val("p"), Password2: Val("p")}, "username", MsgRequired},
		{"пустой username", RegisterInput{Username: Val(" "), Password: Val("p"), Password2: Val("p")}, "username", MsgBlank},
		{"недопустимые символы", RegisterInput{Username: Val("bad name!"), Password: Val("p"), Password2: Val("p")}, "username", MsgInvalidName},
		{"плохой email", RegisterInput{Username: Val("u"), Email: Val("not-an-email"), Password: Val("p"), Password2: Val("p")}, "email", MsgInvalidEmail},
		{"нет password2", RegisterInput{Username: Val("u"), Password: Val("p")}, "password2", MsgRequired},
		{"null password", RegisterInput{Username: Val("u"), Password: Null[string](), Password2: Val("p")}, "password", MsgNull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.auth.Register(ctx, tt.in)
			wantFieldError(t, fieldErrors(t, err), tt.field, tt.msg)
		})
	}

	// Пустой email допустим
	in := registerInput("no-email", "p")
	in.Email = Val("")
	if _, err := s.auth.Register(ctx, in); err != nil {
		t.Errorf("Register() с пустым email: %v", err)
	}
}

func TestAuthService_Login(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	reg, err := s.auth.Register(ctx, registerInput("login-user", "secret"))
	if err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}

	if _, err := s.auth.Login(ctx, "", "secret"); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Login без логина = %v, ожидали ErrMissingCredentials", err)
	}
	if _, err := s.auth.Login(ctx, "login-user", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login с неверным паролем = %v, ожидали ErrInvalidCredentials", err)
	}
	if _, err := s.auth.Login(ctx, "ghost", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login неизвестного = %v, ожидали ErrInvalidCredentials", err)
	}

	session, err := s.auth.Login(ctx, "login-user", "secret")
	if err != nil {
		t.Fatalf("Login() ошибка: %v", err)
	}
	if session.User.LastLogin == nil {
		t.Error("last_login не обновлён")
	}

	s.store.SetUserActive(reg.User.ID, false)
	if _, err := s.auth.Login(ctx, "login-user", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login заблокированного = %v, ожидали ErrInvalidCredentials", err)
	}
	if _, err := s.auth.Authenticate(ctx, session.Tokens.Access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Authenticate заблокированного = %v, ожидали ErrTokenInvalid", err)
	}
}

func TestAuthService_RefreshRotation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	reg, err := s.auth.Register(ctx, registerInput("rotator", "secret"))
	if err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}
	first := reg.Tokens.Refresh

	next, err := s.auth.Refresh(ctx, first)
	if err != nil {
		t.Fatalf("Refresh() ошибка: %v", err)
	}
	if next.Tokens.Refresh == first {
		t.Error("refresh token не ротирован")
	}

	// Повторное использование старого токена
	if _, err := s.auth.Refresh(ctx, first); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("повторный Refresh = %v, ожидали ErrTokenInvalid", err)
	}

	// Новый токен работает
	if _, err := s.auth.Refresh(ctx, next.Tokens.Refresh); err != nil {
		t.Errorf("Refresh(новый) ошибка: %v", err)
	}

	// Access token не принимается как refresh
	if _, err := s.auth.Refresh(ctx, next.Tokens.Access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Refresh(access) = %v, ожидали ErrTokenInvalid", err)
	}
}

func TestAuthService_RefreshReplayWithoutCache(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	reg, err := s.auth.Register(ctx, registerInput("replayer", "secret"))
	if err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}
	if _, err := s.auth.Refresh(ctx, reg.Tokens.Refresh); err != nil {
		t.Fatalf("Refresh() ошибка: %v", err)
	}

	// Другой экземпляр сервиса с пустым кэшем отклоняет токен по БД
	s.auth.cache = NewBlacklistCache(100, time.Hour)
	if _, err := s.auth.Refresh(ctx, reg.Tokens.Refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("повторный Refresh = %v, ожидали ErrTokenInvalid", err)
	}
	if !s.auth.cache.Revoked(mustRefreshJTI(t, s, reg.Tokens.Refresh)) {
		t.Error("отозванный jti не попал в кэш")
	}
}

func mustRefreshJTI(t *testing.T, s *services, token string) string {
	t.Helper()
	claims, err := s.auth.tm.Parse(context.Background(), token, "refresh")
	if err != nil {
		t.Fatalf("Parse() ошибка: %v", err)
	}
	return claims.ID
}

func TestAuthService_Logout(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	reg, err := s.auth.Register(ctx, registerInput("leaver", "secret"))
	if err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}

	if err := s.auth.Logout(ctx, ""); err != nil {
		t.Errorf("Logout без токена: %v", err)
	}
	if err := s.auth.Logout(ctx, "garbage"); err != nil {
		t.Errorf("Logout с мусором: %v", err)
	}
	if err := s.auth.Logout(ctx, reg.Tokens.Refresh); err != nil {
		t.Fatalf("Logout() ошибка: %v", err)
	}
	if err := s.auth.Logout(ctx, reg.Tokens.Refresh); err != nil {
		t.Errorf("повторный Logout: %v", err)
	}

	if _, err := s.auth.Refresh(ctx, reg.Tokens.Refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Refresh после выхода = %v, ожидали ErrTokenInvalid", err)
	}
}

func TestTokenJanitor_FlushNow(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	if _, err := s.auth.Register(ctx, registerInput("janitor", "secret")); err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}

	j := NewTokenJanitor(s.auth, time.Hour, testLogger())
	if n := j.FlushNow(ctx); n != 0 {
		t.Errorf("FlushNow() = %d, ожидали 0 (токен не истёк)", n)
	}

	s.auth.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	if n := j.FlushNow(ctx); n != 1 {
		t.Errorf("FlushNow() = %d, ожидали 1", n)
	}

	j.Start(ctx)
	j.Stop()
}

func TestTokenJanitor_NonPositiveInterval(t *testing.T) {
	s := newServices(t)
	for _, interval := range []time.Duration{0, -time.Minute} {
		j := NewTokenJanitor(s.auth, interval, testLogger())
		// Не должно паниковать в горутине; Stop без запущенной горутины — no-op
		j.Start(context.Background())
		j.Stop()
	}
}

func TestAuthService_LoginVerifiesUnknownUser(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	if _, err := s.auth.Register(ctx, registerInput("timing-user", "correct")); err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}

	var hashes []string
	s.auth.verify = func(password, encodedHash string) (bool, error) {
		hashes = append(hashes, encodedHash)
		return auth.VerifyPassword(password, encodedHash)
	}

	_, errReal := s.auth.Login(ctx, "timing-user", "wrong")
	_, errGhost := s.auth.Login(ctx, "ghost", "wrong")

	if !errors.Is(errReal, ErrInvalidCredentials) || !errors.Is(errGhost, ErrInvalidCredentials) {
		t.Fatalf("ошибки = %v / %v, ожидали ErrInvalidCredentials", errReal, errGhost)
	}
	if len(hashes) != 2 {
		t.Fatalf("verify вызван %d раз, ожидали 2 (существующий и неизвестный пользователь)", len(hashes))
	}
	if !strings.HasPrefix(hashes[1], "$argon2id$") {
		t.Errorf("для неизвестного пользователя проверка шла по %q, ожидали argon2id-хэш", hashes[1])
	}
	if hashes[0] == hashes[1] {
		t.Error("для неизвестного пользователя использован хэш реального пользователя")
	}

	// Хэш-приманка вычисляется один раз
	_, _ = s.auth.Login(ctx, "ghost-2", "wrong")
	if len(hashes) != 3 || hashes[2] != hashes[1] {
		t.Errorf("повторный вызов использовал другой хэш: %v", hashes)
	}
}

func TestAuthService_RegisterAtomic(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	s.store.TokenErr = errors.New("outstanding_token недоступна")
	if _, err := s.auth.Register(ctx, registerInput("atomic", "secret")); err == nil {
		t.Fatal("Register() без записи токена должен вернуть ошибку")
	}
	if _, err := s.store.Users().GetByUsername(ctx, "atomic"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("пользователь остался после ошибки: %v", err)
	}

	// Повтор после восстановления не упирается в "имя занято"
	s.store.TokenErr = nil
	session, err := s.auth.Register(ctx, registerInput("atomic", "secret"))
	if err != nil {
		t.Fatalf("повторный Register() ошибка: %v", err)
	}
	if _, err := s.auth.Refresh(ctx, session.Tokens.Refresh); err != nil {
		t.Errorf("Refresh() после регистрации: %v", err)
	}
}
