package model

import "time"

// OutstandingToken — выданный refresh token.
// Хранится в таблице outstanding_token, отзыв — запись в blacklisted_token.
type OutstandingToken struct {
	// JTI — уникальный идентификатор токена (claim jti)
	JTI string
	// UserID — владелец токена
	UserID int64
	// CreatedAt — время выдачи
	CreatedAt time.Time
	// ExpiresAt — время истечения
	ExpiresAt time.Time
}
