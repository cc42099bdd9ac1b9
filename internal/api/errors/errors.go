// Пакет errors — конструкторы стандартных ошибок servicedesk.
// Единый формат: {"detail": "..."}; ошибки валидации по полям —
// {"detail": "Ошибка валидации запроса.", "errors": {"поле": ["сообщение"]}}.
// Все HTTP-ответы с ошибками должны использовать функции этого пакета.
package errors

import (
	"encoding/json"
	"net/http"
)

// Стандартные тексты ошибок.
const (
	MsgNotFound         = "Не найдено."
	MsgValidation       = "Ошибка валидации запроса."
	MsgInternal         = "Внутренняя ошибка сервера. Пожалуйста, попробуйте позже."
	MsgNotAuthenticated = "Учетные данные не были предоставлены."
	MsgTokenInvalid     = "Токен недействителен или просрочен."
	MsgInvalidHost      = "Недопустимый заголовок Host."
)

// detailBody — тело ответа ошибки.
type detailBody struct {
	Detail string `json:"detail"`
}

// validationBody — тело ответа ошибки валидации.
// Errors — исходные ошибки: объект по полям или список.
type validationBody struct {
	Detail string `json:"detail"`
	Errors any    `json:"errors"`
}

// WriteError записывает ответ ошибки в формате {"detail": message}.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(detailBody{Detail: message})
}

// --- Конструкторы для типичных ошибок ---

// BadRequest — 400 некорректный запрос.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// Validation записывает ошибки валидации в общем конверте
// {"detail": "Ошибка валидации запроса.", "errors": errs}.
func Validation(w http.ResponseWriter, statusCode int, errs any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(validationBody{Detail: MsgValidation, Errors: errs})
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter) {
	WriteError(w, http.StatusNotFound, MsgNotFound)
}

// Unauthorized — 401 требуется аутентификация.
// WWW-Authenticate: Bearer сообщает клиенту схему аутентификации.
func Unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	WriteError(w, http.StatusUnauthorized, message)
}

// MethodNotAllowed — 405 метод не поддерживается.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	WriteError(w, http.StatusMethodNotAllowed, "Метод \""+method+"\" не разрешен.")
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, MsgInternal)
}
