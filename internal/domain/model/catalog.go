// Пакет model — доменные сущности servicedesk.
package model

// Brigade — бригада, выполняющая заявки.
// Хранится в таблице brigade.
type Brigade struct {
	// ID — первичный ключ
	ID int64
	// Number — номер бригады (уникальный, >= 1)
	Number int
}

// LookupKind — вид справочника с одним строковым полем.
type LookupKind string

const (
	// KindLocation — местоположения.
	KindLocation LookupKind = "location"
	// KindObject — объекты.
	KindObject LookupKind = "object"
	// KindStatus — статусы закрытия заявки.
	KindStatus LookupKind = "status"
)

// MaxLength возвращает максимальную длину значения справочника.
func (k LookupKind) MaxLength() int {
	if k == KindStatus {
		return 32
	}
	return 64
}

// Title возвращает человекочитаемое имя справочника (для сообщений и логов).
func (k LookupKind) Title() string {
	switch k {
	case KindLocation:
		return "Местоположение"
	case KindObject:
		return "Объект"
	case KindStatus:
		return "Статус"
	default:
		return string(k)
	}
}

// Lookup — запись справочника Location, Object или Status.
// Поле JSON совпадает с Kind: {"id": 1, "location": "..."}.
type Lookup struct {
	// ID — первичный ключ
	ID int64
	// Name — значение (location, object или status)
	Name string
}
