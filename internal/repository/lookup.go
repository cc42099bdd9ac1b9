package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/servicedesk/internal/domain/model"
)

// LookupRepository — интерфейс CRUD для справочников location, object, status.
type LookupRepository interface {
	// Kind возвращает вид справочника.
	Kind() model.LookupKind
	// List возвращает все записи, упорядоченные по значению.
	List(ctx context.Context) ([]*model.Lookup, error)
	// GetByID возвращает запись по ID.
	GetByID(ctx context.Context, id int64) (*model.Lookup, error)
	// Exists проверяет существование записи.
	Exists(ctx context.Context, id int64) (bool, error)
	// Create создаёт запись и заполняет ID.
	Create(ctx context.Context, l *model.Lookup) error
	// Update обновляет значение записи.
	Update(ctx context.Context, l *model.Lookup) error
	// Delete удаляет запись вместе со ссылающимися заявками.
	Delete(ctx context.Context, id int64) error
}

// lookupTable — SQL-имена таблицы справочника.
type lookupTable struct {
	// table — имя таблицы и её единственного поля
	table string
	// fkColumn — колонка application, ссылающаяся на справочник
	fkColumn string
}

// lookupTables — фиксированный набор таблиц; имена не приходят извне.
var lookupTables = map[model.LookupKind]lookupTable{
	model.KindLocation: {table: "location", fkColumn: "location_id"},
	model.KindObject:   {table: "object", fkColumn: "object_instance_id"},
	model.KindStatus:   {table: "status", fkColumn: "status_id"},
}

// lookupRepo — реализация LookupRepository для одного вида справочника.
type lookupRepo struct {
	db   DBTX
	kind model.LookupKind
	t    lookupTable
}

// NewLookupRepository создаёт репозиторий справочника указанного вида.
// Паникует на неизвестном виде — это ошибка программиста.
func NewLookupRepository(db DBTX, kind model.LookupKind) LookupRepository {
	t, ok := lookupTables[kind]
	if !ok {
		panic(fmt.Sprintf("repository: неизвестный справочник %q", kind))
	}
	return &lookupRepo{db: db, kind: kind, t: t}
}

// NewLocationRepository создаёт репозиторий местоположений.
func NewLocationRepository(db DBTX) LookupRepository {
	return NewLookupRepository(db, model.KindLocation)
}

// NewObjectRepository создаёт репозиторий объектов.
func NewObjectRepository(db DBTX) LookupRepository {
	return NewLookupRepository(db, model.KindObject)
}

// NewStatusRepository создаёт репозиторий статусов.
func NewStatusRepository(db DBTX) LookupRepository {
	return NewLookupRepository(db, model.KindStatus)
}

func (r *lookupRepo) Kind() model.LookupKind {
	return r.kind
}

func (r *lookupRepo) List(ctx context.Context) ([]*model.Lookup, error) {
	query := fmt.Sprintf(`SELECT id, %[1]s FROM %[1]s ORDER BY %[1]s`, r.t.table)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка %s: %w", r.t.table, err)
	}
	defer rows.Close()

	result := make([]*model.Lookup, 0)
	for rows.Next() {
		l := &model.Lookup{}
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("ошибка сканирования %s: %w", r.t.table, err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (r *lookupRepo) GetByID(ctx context.Context, id int64) (*model.Lookup, error) {
	query := fmt.Sprintf(`SELECT id, %[1]s FROM %[1]s WHERE id = $1`, r.t.table)

	l := &model.Lookup{}
	if err := r.db.QueryRow(ctx, query, id).Scan(&l.ID, &l.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения %s: %w", r.t.table, err)
	}
	return l, nil
}

func (r *lookupRepo) Exists(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, r.t.table)

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки %s: %w", r.t.table, err)
	}
	return exists, nil
}

func (r *lookupRepo) Create(ctx context.Context, l *model.Lookup) error {
	query := fmt.Sprintf(`INSERT INTO %[1]s (%[1]s) VALUES ($1) RETURNING id`, r.t.table)

	if err := r.db.QueryRow(ctx, query, l.Name).Scan(&l.ID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %q уже существует", ErrConflict, r.t.table, l.Name)
		}
		return fmt.Errorf("ошибка создания %s: %w", r.t.table, err)
	}
	return nil
}

func (r *lookupRepo) Update(ctx context.Context, l *model.Lookup) error {
	query := fmt.Sprintf(`UPDATE %[1]s SET %[1]s = $2 WHERE id = $1`, r.t.table)

	tag, err := r.db.Exec(ctx, query, l.ID, l.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %q уже существует", ErrConflict, r.t.table, l.Name)
		}
		return fmt.Errorf("ошибка обновления %s: %w", r.t.table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет ссылающиеся заявки и саму запись в одной транзакции.
func (r *lookupRepo) Delete(ctx context.Context, id int64) error {
	cascade := fmt.Sprintf(`DELETE FROM application WHERE %s = $1`, r.t.fkColumn)
	del := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.t.table)

	return runInTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, cascade, id); err != nil {
			return fmt.Errorf("ошибка каскадного удаления заявок: %w", err)
		}
		tag, err := tx.Exec(ctx, del, id)
		if err != nil {
			return fmt.Errorf("ошибка удаления %s: %w", r.t.table, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
