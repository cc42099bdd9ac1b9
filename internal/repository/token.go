package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/servicedesk/internal/domain/model"
)

// TokenRepository — учёт выданных и отозванных refresh token.
type TokenRepository interface {
	// CreateOutstanding записывает выданный refresh token.
	CreateOutstanding(ctx context.Context, t *model.OutstandingToken) error
	// Blacklist отзывает токен. ErrRevoked — токен уже отозван или не выдавался.
	Blacklist(ctx context.Context, jti string) error
	// Rotate отзывает старый токен и записывает новый в одной транзакции.
	// Из двух параллельных ротаций одного токена успешна только одна.
	Rotate(ctx context.Context, oldJTI string, next *model.OutstandingToken) error
	// DeleteExpired удаляет токены, истёкшие до now. Возвращает число удалённых.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// tokenRepo — реализация TokenRepository.
type tokenRepo struct {
	db DBTX
}

// NewTokenRepository создаёт репозиторий токенов.
func NewTokenRepository(db DBTX) TokenRepository {
	return &tokenRepo{db: db}
}

// execer — общий метод pgxpool.Pool и pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertOutstanding(ctx context.Context, db execer, t *model.OutstandingToken) error {
	_, err := db.Exec(ctx, `
		INSERT INTO outstanding_token (jti, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`,
		t.JTI, t.UserID, t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: токен %s уже записан", ErrConflict, t.JTI)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: пользователь %d", ErrForeignKey, t.UserID)
		}
		return fmt.Errorf("ошибка записи токена: %w", err)
	}
	return nil
}

// blacklistJTI — INSERT ... ON CONFLICT DO NOTHING: ноль строк означает,
// что токен уже отозван или не найден.
func blacklistJTI(ctx context.Context, db execer, jti string) error {
	tag, err := db.Exec(ctx, `
		INSERT INTO blacklisted_token (token_id)
		SELECT id FROM outstanding_token WHERE jti = $1
		ON CONFLICT (token_id) DO NOTHING`, jti)
	if err != nil {
		return fmt.Errorf("ошибка отзыва токена: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRevoked
	}
	return nil
}

func (r *tokenRepo) CreateOutstanding(ctx context.Context, t *model.OutstandingToken) error {
	return insertOutstanding(ctx, r.db, t)
}

func (r *tokenRepo) Blacklist(ctx context.Context, jti string) error {
	return blacklistJTI(ctx, r.db, jti)
}

func (r *tokenRepo) Rotate(ctx context.Context, oldJTI string, next *model.OutstandingToken) error {
	return runInTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := blacklistJTI(ctx, tx, oldJTI); err != nil {
			return err
		}
		return insertOutstanding(ctx, tx, next)
	})
}

func (r *tokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM outstanding_token WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления истёкших токенов: %w", err)
	}
	return tag.RowsAffected(), nil
}
