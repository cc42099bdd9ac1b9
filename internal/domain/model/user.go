package model

import "time"

// User — учётная запись пользователя API.
// Наружу не отдаётся, используется только аутентификацией.
type User struct {
	// ID — первичный ключ
	ID int64
	// Username — уникальное имя пользователя
	Username string
	// Email — электронная почта (может быть пустой)
	Email string
	// PasswordHash — хэш пароля в формате PHC (argon2id)
	PasswordHash string
	// IsActive — false блокирует вход и обновление токенов
	IsActive bool
	// LastLogin — время последнего входа
	LastLogin *time.Time
	// DateJoined — время регистрации
	DateJoined time.Time
}
