// brigades.go — сервис справочника бригад.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/servicedesk/internal/domain/model"
	"github.com/bigkaa/servicedesk/internal/repository"
)

// BrigadeInput — входные данные бригады.
type BrigadeInput struct {
	// Brigade — номер бригады
	Brigade Field[int64]
}

// BrigadeService — CRUD бригад.
type BrigadeService struct {
	repo   repository.BrigadeRepository
	logger *slog.Logger
}

// NewBrigadeService создаёт сервис бригад.
func NewBrigadeService(repo repository.BrigadeRepository, logger *slog.Logger) *BrigadeService {
	return &BrigadeService{
		repo:   repo,
		logger: logger.With(slog.String("component", "brigade_service")),
	}
}

// List возвращает бригады по возрастанию номера.
func (s *BrigadeService) List(ctx context.Context) ([]*model.Brigade, error) {
	return s.repo.List(ctx)
}

// Get возвращает бригаду по ID.
func (s *BrigadeService) Get(ctx context.Context, id int64) (*model.Brigade, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: бригада %d", ErrNotFound, id)
		}
		return nil, err
	}
	return b, nil
}

// Create проверяет входные данные и создаёт бригаду.
func (s *BrigadeService) Create(ctx context.Context, in BrigadeInput) (*model.Brigade, error) {
	b := &model.Brigade{}
	if err := s.apply(b, in, false); err != nil {
		return nil, err
	}

	s.logger.Info("Создание бригады", slog.Int("brigade", b.Number))

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, s.mapWriteError(err, b.ID)
	}
	return b, nil
}

// Update обновляет бригаду. partial — PATCH: отсутствующие поля не меняются.
func (s *BrigadeService) Update(ctx context.Context, id int64, in BrigadeInput, partial bool) (*model.Brigade, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(b, in, partial); err != nil {
		return nil, err
	}

	s.logger.Info("Обновление бригады",
		slog.Int64("id", id),
		slog.Int("brigade", b.Number),
	)

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, s.mapWriteError(err, id)
	}
	return b, nil
}

// Delete удаляет бригаду; заявки бригады остаются без бригады.
func (s *BrigadeService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: бригада %d", ErrNotFound, id)
		}
		return err
	}
	s.logger.Info("Удаление бригады", slog.Int64("id", id))
	return nil
}

func (s *BrigadeService) apply(b *model.Brigade, in BrigadeInput, partial bool) error {
	verr := newValidationError()
	if n, ok := checkInt(verr, "brigade", in.Brigade, !partial, 1); ok {
		b.Number = n
	}
	return verr.OrNil()
}

func (s *BrigadeService) mapWriteError(err error, id int64) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return FieldError("brigade", msgUnique("Бригада", "Номер бригады"))
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: бригада %d", ErrNotFound, id)
	default:
		return err
	}
}
