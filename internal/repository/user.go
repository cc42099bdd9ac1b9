package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/servicedesk/internal/domain/model"
)

// UserRepository — интерфейс для таблицы users.
type UserRepository interface {
	// Create создаёт пользователя и заполняет ID и DateJoined.
	Create(ctx context.Context, u *model.User) error
	// CreateWithToken создаёт пользователя и его первый refresh token в одной
	// транзакции. mint получает пользователя с заполненным ID; ошибка mint
	// или записи токена откатывает вставку пользователя.
	CreateWithToken(ctx context.Context, u *model.User, mint MintFunc) error
	// GetByID возвращает пользователя по ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByUsername возвращает пользователя по имени.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// UpdateLastLogin записывает время последнего входа.
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// MintFunc выпускает refresh token для только что созданного пользователя.
type MintFunc func(u *model.User) (*model.OutstandingToken, error)

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, username, email, password_hash, is_active, last_login, date_joined`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.LastLogin, &u.DateJoined)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	return insertUser(ctx, r.db, u)
}

func (r *userRepo) CreateWithToken(ctx context.Context, u *model.User, mint MintFunc) error {
	return runInTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		t, err := mint(u)
		if err != nil {
			return fmt.Errorf("выпуск refresh token: %w", err)
		}
		return insertOutstanding(ctx, tx, t)
	})
}

func insertUser(ctx context.Context, db DBTX, u *model.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, date_joined`

	err := db.QueryRow(ctx, query, u.Username, u.Email, u.PasswordHash, u.IsActive).
		Scan(&u.ID, &u.DateJoined)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пользователь %s уже существует", ErrConflict, u.Username)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("ошибка обновления last_login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
