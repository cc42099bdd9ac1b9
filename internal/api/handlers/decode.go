// decode.go — разбор JSON-тела запроса во входные поля сервисного слоя.
// Отсутствующий ключ, явный null и значение неверного типа различаются (service.Field).
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/servicedesk/internal/service"
)

// maxBodySize — максимальный размер тела запроса.
const maxBodySize = 1 << 20

// naiveLayouts — форматы даты-времени без смещения, интерпретируются в часовом поясе сервиса.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// requestError — ошибка разбора тела запроса, отдаётся клиенту как есть.
type requestError struct {
	status int
	// detail — текст для {"detail": ...}; fields — ошибки без поля (non_field_errors).
	detail string
	fields map[string][]string
}

func (e *requestError) Error() string {
	if e.detail != "" {
		return e.detail
	}
	return fmt.Sprint(e.fields)
}

// body — JSON-объект запроса с ключами верхнего уровня.
type body map[string]json.RawMessage

// decodeBody читает JSON-объект из тела запроса.
// Пустое тело — пустой объект (ошибки обязательных полей выдаст сервис).
func decodeBody(w http.ResponseWriter, r *http.Request) (body, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json")) {
			return nil, &requestError{
				status: http.StatusUnsupportedMediaType,
				detail: fmt.Sprintf("Неподдерживаемый тип данных %q в запросе.", ct),
			}
		}
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, &requestError{
				status: http.StatusRequestEntityTooLarge,
				detail: "Слишком большое тело запроса.",
			}
		}
		return nil, &requestError{status: http.StatusBadRequest, detail: "Не удалось прочитать тело запроса."}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return body{}, nil
	}

	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &requestError{status: http.StatusBadRequest, detail: "Некорректный JSON: " + err.Error()}
	}
	if kind := jsonKind(raw); kind != "dict" {
		return nil, &requestError{
			status: http.StatusBadRequest,
			fields: map[string][]string{
				"non_field_errors": {fmt.Sprintf("Недопустимые данные. Ожидался dict, но был получен %s.", kind)},
			},
		}
	}

	var b body
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, &requestError{status: http.StatusBadRequest, detail: "Некорректный JSON: " + err.Error()}
	}
	return b, nil
}

// jsonKind возвращает тип JSON-значения в терминах сообщений об ошибках.
func jsonKind(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "NoneType"
	}
	switch raw[0] {
	case '{':
		return "dict"
	case '[':
		return "list"
	case '"':
		return "str"
	case 't', 'f':
		return "bool"
	case 'n':
		return "NoneType"
	}
	if bytes.ContainsAny(raw, ".eE") {
		return "float"
	}
	return "int"
}

// raw возвращает значение ключа и признак наличия (null считается присутствующим).
func (b body) raw(key string) (json.RawMessage, bool) {
	v, ok := b[key]
	return v, ok
}

// String — строковое поле. Числа приводятся к строке, прочие типы — ошибка.
func (b body) String(key string) service.Field[string] {
	raw, ok := b.raw(key)
	if !ok {
		return service.Field[string]{}
	}
	switch jsonKind(raw) {
	case "NoneType":
		return service.Null[string]()
	case "str":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return service.Invalid[string](service.MsgInvalidString)
		}
		return service.Val(s)
	case "int", "float":
		return service.Val(string(bytes.TrimSpace(raw)))
	default:
		return service.Invalid[string](service.MsgInvalidString)
	}
}

// Int — целочисленное поле. Принимается JSON-число или строка с числом.
func (b body) Int(key string) service.Field[int64] {
	raw, ok := b.raw(key)
	if !ok {
		return service.Field[int64]{}
	}
	kind := jsonKind(raw)
	if kind == "NoneType" {
		return service.Null[int64]()
	}
	if v, ok := parseInteger(raw, kind); ok {
		return service.Val(v)
	}
	return service.Invalid[int64](service.MsgInvalidInt)
}

// Ref — значение внешнего ключа. Сообщение об ошибке называет полученный тип.
func (b body) Ref(key string) service.Field[int64] {
	raw, ok := b.raw(key)
	if !ok {
		return service.Field[int64]{}
	}
	kind := jsonKind(raw)
	if kind == "NoneType" {
		return service.Null[int64]()
	}
	if v, ok := parseInteger(raw, kind); ok {
		return service.Val(v)
	}
	return service.Invalid[int64](service.MsgInvalidPK(kind))
}

// Time — дата-время ISO 8601. Значение без смещения трактуется в часовом поясе loc.
func (b body) Time(key string, loc *time.Location) service.Field[time.Time] {
	raw, ok := b.raw(key)
	if !ok {
		return service.Field[time.Time]{}
	}
	kind := jsonKind(raw)
	if kind == "NoneType" {
		return service.Null[time.Time]()
	}
	if kind != "str" {
		return service.Invalid[time.Time](service.MsgInvalidTime)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return service.Invalid[time.Time](service.MsgInvalidTime)
	}
	t, ok := parseTime(strings.TrimSpace(s), loc)
	if !ok {
		return service.Invalid[time.Time](service.MsgInvalidTime)
	}
	return service.Val(t)
}

// Text — значение строкового поля без проверки (логин и пароль при входе).
// Отсутствие, null и нестроковое значение — пустая строка.
func (b body) Text(key string) string {
	f := b.String(key)
	if !f.Present || f.Null || f.Invalid != "" {
		return ""
	}
	return f.Value
}

// parseInteger разбирает целое из JSON-числа или строки. 1.0 допустимо, 1.5 — нет.
func parseInteger(raw json.RawMessage, kind string) (int64, bool) {
	var s string
	switch kind {
	case "int", "float":
		s = string(bytes.TrimSpace(raw))
	case "str":
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
	default:
		return 0, false
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// parseTime разбирает RFC 3339 или формат без смещения в часовом поясе loc.
func parseTime(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	// Смещение без двоеточия или с пробелом вместо T.
	for _, layout := range []string{"2006-01-02T15:04:05.999999999Z0700", "2006-01-02 15:04:05.999999999Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
