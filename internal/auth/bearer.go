package auth

import "strings"

// BearerToken извлекает токен из заголовка Authorization: Bearer <token>.
// ok=false — заголовок пуст или схема не Bearer; пустой token при ok=true — схема без токена.
func BearerToken(header string) (token string, ok bool) {
	scheme, rest, _ := strings.Cut(strings.TrimSpace(header), " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
