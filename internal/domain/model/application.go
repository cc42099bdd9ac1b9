package model

import "time"

// Application — заявка на обслуживание.
// Хранится в таблице application, ссылается на четыре справочника.
type Application struct {
	// ID — первичный ключ
	ID int64
	// Identifier — уникальный идентификатор заявки (до 16 символов)
	Identifier string
	// Correction — примечание (может быть nil)
	Correction *string
	// StartTime — время возникновения
	StartTime time.Time
	// EndTime — время закрытия (nil — заявка открыта)
	EndTime *time.Time

	// BrigadeID — бригада (nil — не назначена)
	BrigadeID *int64
	// LocationID — местоположение
	LocationID int64
	// ObjectID — объект
	ObjectID int64
	// StatusID — статус
	StatusID int64

	// --- Только для чтения (JOIN со справочниками) ---

	// BrigadeNumber — номер бригады (nil, если бригада не назначена)
	BrigadeNumber *int
	// LocationName — название местоположения
	LocationName string
	// ObjectName — название объекта
	ObjectName string
	// StatusName — название статуса
	StatusName string
}
