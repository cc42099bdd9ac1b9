// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrMissingCredentials — при входе не указан логин или пароль.
	ErrMissingCredentials = errors.New("не указан логин или пароль")
	// ErrInvalidCredentials — неверный логин/пароль или пользователь заблокирован.
	ErrInvalidCredentials = errors.New("неверные учетные данные")
	// ErrTokenInvalid — токен недействителен, просрочен или отозван.
	ErrTokenInvalid = errors.New("токен недействителен")
)

// ValidationError — ошибки валидации по полям.
// Ключ — имя поля во входных данных, значение — сообщения в порядке появления.
// errors.Is(err, ErrValidation) == true.
type ValidationError struct {
	Fields map[string][]string
}

// newValidationError создаёт пустую ValidationError.
func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// FieldError создаёт ValidationError с одним сообщением.
func FieldError(field, msg string) *ValidationError {
	v := newValidationError()
	v.Add(field, msg)
	return v
}

// Add добавляет сообщение к полю.
func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty сообщает, что ошибок нет.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil возвращает nil, если ошибок нет.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], ", ")))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Is делает ValidationError совместимой с errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
