package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/servicedesk/internal/domain/model"
)

// ApplicationRepository — интерфейс CRUD для таблицы application.
type ApplicationRepository interface {
	// List возвращает все заявки, новые сначала (start_time DESC).
	List(ctx context.Context) ([]*model.Application, error)
	// GetByID возвращает заявку по ID вместе с названиями справочников.
	GetByID(ctx context.Context, id int64) (*model.Application, error)
	// Create создаёт заявку, заполняет ID и поля справочников.
	Create(ctx context.Context, a *model.Application) error
	// Update обновляет заявку и перечитывает поля справочников.
	Update(ctx context.Context, a *model.Application) error
	// Delete удаляет заявку.
	Delete(ctx context.Context, id int64) error
}

// applicationRepo — реализация ApplicationRepository.
type applicationRepo struct {
	db DBTX
}

// NewApplicationRepository создаёт репозиторий заявок.
func NewApplicationRepository(db DBTX) ApplicationRepository {
	return &applicationRepo{db: db}
}

// applicationSelect — общий SELECT с JOIN справочников.
const applicationSelect = `
	SELECT a.id, a.identifier, a.correction, a.start_time, a.end_time,
		a.brigade_id, a.location_id, a.object_instance_id, a.status_id,
		b.brigade, l.location, o.object, s.status
	FROM application a
	LEFT JOIN brigade b ON b.id = a.brigade_id
	JOIN location l ON l.id = a.location_id
	JOIN object o ON o.id = a.object_instance_id
	JOIN status s ON s.id = a.status_id`

// scanApplication сканирует строку applicationSelect.
func scanApplication(row pgx.Row) (*model.Application, error) {
	a := &model.Application{}
	err := row.Scan(
		&a.ID, &a.Identifier, &a.Correction, &a.StartTime, &a.EndTime,
		&a.BrigadeID, &a.LocationID, &a.ObjectID, &a.StatusID,
		&a.BrigadeNumber, &a.LocationName, &a.ObjectName, &a.StatusName,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *applicationRepo) List(ctx context.Context) ([]*model.Application, error) {
	rows, err := r.db.Query(ctx, applicationSelect+` ORDER BY a.start_time DESC, a.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка заявок: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *applicationRepo) GetByID(ctx context.Context, id int64) (*model.Application, error) {
	a, err := scanApplication(r.db.QueryRow(ctx, applicationSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заявки: %w", err)
	}
	return a, nil
}

func (r *applicationRepo) Create(ctx context.Context, a *model.Application) error {
	query := `
		INSERT INTO application (identifier, correction, start_time, end_time,
			brigade_id, location_id, object_instance_id, status_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		a.Identifier, a.Correction, a.StartTime, a.EndTime,
		a.BrigadeID, a.LocationID, a.ObjectID, a.StatusID,
	).Scan(&a.ID)
	if err != nil {
		return mapApplicationWriteError(err, "создания")
	}

	return r.reload(ctx, a)
}

func (r *applicationRepo) Update(ctx context.Context, a *model.Application) error {
	query := `
		UPDATE application
		SET identifier = $2, correction = $3, start_time = $4, end_time = $5,
			brigade_id = $6, location_id = $7, object_instance_id = $8, status_id = $9
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		a.ID, a.Identifier, a.Correction, a.StartTime, a.EndTime,
		a.BrigadeID, a.LocationID, a.ObjectID, a.StatusID,
	)
	if err != nil {
		return mapApplicationWriteError(err, "обновления")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return r.reload(ctx, a)
}

func (r *applicationRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM application WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// reload перечитывает заявку после записи, чтобы заполнить поля справочников.
func (r *applicationRepo) reload(ctx context.Context, a *model.Application) error {
	fresh, err := r.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	*a = *fresh
	return nil
}

// mapApplicationWriteError переводит ошибки PostgreSQL в ошибки репозитория.
func mapApplicationWriteError(err error, op string) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: заявка с таким идентификатором уже существует", ErrConflict)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrForeignKey, err)
	case isCheckViolation(err):
		return fmt.Errorf("ошибка %s заявки (CHECK): %w", op, err)
	default:
		return fmt.Errorf("ошибка %s заявки: %w", op, err)
	}
}
