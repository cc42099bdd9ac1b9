// fields.go — входные поля и правила их проверки.
package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Сообщения об ошибках полей.
const (
	MsgRequired      = "Обязательное поле."
	MsgNull          = "Это поле не может быть null."
	MsgBlank         = "Это поле не может быть пустым."
	MsgInvalidInt    = "Введите правильное число."
	MsgInvalidString = "Некорректная строка."
	MsgInvalidTime   = "Неправильный формат datetime. Используйте один из этих форматов: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."
	MsgInvalidEmail  = "Введите правильный адрес электронной почты."
	MsgInvalidName   = "Введите правильное имя пользователя. Оно может содержать только буквы, цифры и знаки @/./+/-/_."
	MsgPasswordsDiff = "Пароли не совпадают."
	MsgUsernameTaken = "Пользователь с таким именем уже существует."
)

// Границы IntegerField (int4 в PostgreSQL).
const (
	maxInt4 = 2147483647
	minInt4 = -2147483648
)

// MsgInvalidPK — значение внешнего ключа не является числом.
func MsgInvalidPK(typeName string) string {
	return fmt.Sprintf("Некорректный тип. Ожидалось значение первичного ключа, получен %s.", typeName)
}

// msgMaxLength — строка длиннее допустимого.
func msgMaxLength(n int) string {
	return fmt.Sprintf("Убедитесь, что это значение содержит не более %d символов.", n)
}

// msgMinValue — число меньше допустимого.
func msgMinValue(n int) string {
	return fmt.Sprintf("Убедитесь, что это значение больше либо равно %d.", n)
}

// msgMaxValue — число больше допустимого.
func msgMaxValue(n int) string {
	return fmt.Sprintf("Убедитесь, что это значение меньше либо равно %d.", n)
}

// msgUnique — нарушение уникальности.
func msgUnique(model, field string) string {
	return fmt.Sprintf("%s с таким %s уже существует.", model, field)
}

// Field — поле входных данных.
// Различает отсутствие ключа (PATCH), явный null и значение.
// Invalid — сообщение, если значение не удалось разобрать.
type Field[T any] struct {
	Present bool
	Null    bool
	Value   T
	Invalid string
}

// Val создаёт поле со значением.
func Val[T any](v T) Field[T] {
	return Field[T]{Present: true, Value: v}
}

// Null создаёт поле с явным null.
func Null[T any]() Field[T] {
	return Field[T]{Present: true, Null: true}
}

// Invalid создаёт поле с ошибкой формата.
func Invalid[T any](msg string) Field[T] {
	return Field[T]{Present: true, Invalid: msg}
}

// settable сообщает, нужно ли применять поле: есть значение без ошибок
// формата. Отсутствие обязательного поля при полном обновлении — ошибка.
func settable[T any](verr *ValidationError, name string, f Field[T], required bool) bool {
	switch {
	case f.Invalid != "":
		verr.Add(name, f.Invalid)
		return false
	case !f.Present:
		if required {
			verr.Add(name, MsgRequired)
		}
		return false
	}
	return true
}

// checkString проверяет обязательную непустую строку с ограничением длины.
// Пробелы по краям отбрасываются.
func checkString(verr *ValidationError, name string, f Field[string], required bool, maxLen int) (string, bool) {
	if !settable(verr, name, f, required) {
		return "", false
	}
	if f.Null {
		verr.Add(name, MsgNull)
		return "", false
	}
	v := strings.TrimSpace(f.Value)
	if v == "" {
		verr.Add(name, MsgBlank)
		return "", false
	}
	if maxLen > 0 && utf8.RuneCountInString(v) > maxLen {
		verr.Add(name, msgMaxLength(maxLen))
		return "", false
	}
	return v, true
}

// checkOptionalText проверяет необязательный текст, допускающий null и пустую строку.
func checkOptionalText(verr *ValidationError, name string, f Field[string]) (*string, bool) {
	if !settable(verr, name, f, false) {
		return nil, false
	}
	if f.Null {
		return nil, true
	}
	v := strings.TrimSpace(f.Value)
	return &v, true
}

// checkInt проверяет обязательное целое в диапазоне [minValue, int4].
func checkInt(verr *ValidationError, name string, f Field[int64], required bool, minValue int) (int, bool) {
	if !settable(verr, name, f, required) {
		return 0, false
	}
	if f.Null {
		verr.Add(name, MsgNull)
		return 0, false
	}
	if f.Value < int64(minValue) {
		verr.Add(name, msgMinValue(minValue))
		return 0, false
	}
	if f.Value > maxInt4 {
		verr.Add(name, msgMaxValue(maxInt4))
		return 0, false
	}
	return int(f.Value), true
}

// checkTime проверяет дату-время; nullable разрешает null.
func checkTime(verr *ValidationError, name string, f Field[time.Time], required, nullable bool) (*time.Time, bool) {
	if !settable(verr, name, f, required) {
		return nil, false
	}
	if f.Null {
		if !nullable {
			verr.Add(name, MsgNull)
			return nil, false
		}
		return nil, true
	}
	v := f.Value.UTC()
	return &v, true
}

// checkRef проверяет значение внешнего ключа (без проверки существования).
func checkRef(verr *ValidationError, name string, f Field[int64], required, nullable bool) (*int64, bool) {
	if !settable(verr, name, f, required) {
		return nil, false
	}
	if f.Null {
		if !nullable {
			verr.Add(name, MsgNull)
			return nil, false
		}
		return nil, true
	}
	v := f.Value
	return &v, true
}

// usernamePattern — буквы, цифры и @.+-_
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
