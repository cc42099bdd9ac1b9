package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/servicedesk/internal/domain/model"
)

// BrigadeRepository — интерфейс CRUD для таблицы brigade.
type BrigadeRepository interface {
	// List возвращает все бригады, упорядоченные по номеру.
	List(ctx context.Context) ([]*model.Brigade, error)
	// GetByID возвращает бригаду по ID.
	GetByID(ctx context.Context, id int64) (*model.Brigade, error)
	// Exists проверяет существование бригады.
	Exists(ctx context.Context, id int64) (bool, error)
	// Create создаёт бригаду и заполняет ID.
	Create(ctx context.Context, b *model.Brigade) error
	// Update обновляет номер бригады.
	Update(ctx context.Context, b *model.Brigade) error
	// Delete удаляет бригаду, обнуляя ссылки из заявок.
	Delete(ctx context.Context, id int64) error
}

// brigadeRepo — реализация BrigadeRepository.
type brigadeRepo struct {
	db DBTX
}

// NewBrigadeRepository создаёт репозиторий бригад.
func NewBrigadeRepository(db DBTX) BrigadeRepository {
	return &brigadeRepo{db: db}
}

func (r *brigadeRepo) List(ctx context.Context) ([]*model.Brigade, error) {
	rows, err := r.db.Query(ctx, `SELECT id, brigade FROM brigade ORDER BY brigade`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка бригад: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Brigade, 0)
	for rows.Next() {
		b := &model.Brigade{}
		if err := rows.Scan(&b.ID, &b.Number); err != nil {
			return nil, fmt.Errorf("ошибка сканирования бригады: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *brigadeRepo) GetByID(ctx context.Context, id int64) (*model.Brigade, error) {
	b := &model.Brigade{}
	err := r.db.QueryRow(ctx, `SELECT id, brigade FROM brigade WHERE id = $1`, id).Scan(&b.ID, &b.Number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения бригады: %w", err)
	}
	return b, nil
}

func (r *brigadeRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM brigade WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки бригады: %w", err)
	}
	return exists, nil
}

func (r *brigadeRepo) Create(ctx context.Context, b *model.Brigade) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO brigade (brigade) VALUES ($1) RETURNING id`, b.Number,
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: бригада %d уже существует", ErrConflict, b.Number)
		}
		return fmt.Errorf("ошибка создания бригады: %w", err)
	}
	return nil
}

func (r *brigadeRepo) Update(ctx context.Context, b *model.Brigade) error {
	tag, err := r.db.Exec(ctx, `UPDATE brigade SET brigade = $2 WHERE id = $1`, b.ID, b.Number)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: бригада %d уже существует", ErrConflict, b.Number)
		}
		return fmt.Errorf("ошибка обновления бригады: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete обнуляет brigade_id в заявках и удаляет бригаду в одной транзакции.
func (r *brigadeRepo) Delete(ctx context.Context, id int64) error {
	return runInTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE application SET brigade_id = NULL WHERE brigade_id = $1`, id); err != nil {
			return fmt.Errorf("ошибка отвязки заявок от бригады: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM brigade WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("ошибка удаления бригады: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
