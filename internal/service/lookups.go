// lookups.go — сервис справочников местоположений, объектов и статусов.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/servicedesk/internal/domain/model"
	"github.com/bigkaa/servicedesk/internal/repository"
)

// LookupInput — входные данные записи справочника.
type LookupInput struct {
	// Value — значение поля, одноимённого справочнику (location, object, status)
	Value Field[string]
}

// lookupLabels — подписи полей для сообщений об уникальности.
var lookupLabels = map[model.LookupKind]string{
	model.KindLocation: "Местоположение",
	model.KindObject:   "Название объекта",
	model.KindStatus:   "Статус закрытия заявки",
}

// LookupService — CRUD одного справочника.
type LookupService struct {
	repo   repository.LookupRepository
	kind   model.LookupKind
	logger *slog.Logger
}

// NewLookupService создаёт сервис справочника; вид берётся из репозитория.
func NewLookupService(repo repository.LookupRepository, logger *slog.Logger) *LookupService {
	kind := repo.Kind()
	return &LookupService{
		repo:   repo,
		kind:   kind,
		logger: logger.With(slog.String("component", string(kind)+"_service")),
	}
}

// Kind возвращает вид справочника.
func (s *LookupService) Kind() model.LookupKind {
	return s.kind
}

// List возвращает записи по возрастанию значения.
func (s *LookupService) List(ctx context.Context) ([]*model.Lookup, error) {
	return s.repo.List(ctx)
}

// Get возвращает запись по ID.
func (s *LookupService) Get(ctx context.Context, id int64) (*model.Lookup, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s %d", ErrNotFound, s.kind, id)
		}
		return nil, err
	}
	return l, nil
}

// Create проверяет входные данные и создаёт запись.
func (s *LookupService) Create(ctx context.Context, in LookupInput) (*model.Lookup, error) {
	l := &model.Lookup{}
	if err := s.apply(l, in, false); err != nil {
		return nil, err
	}

	s.logger.Info("Создание записи справочника",
		slog.String("kind", string(s.kind)),
		slog.String(string(s.kind), l.Name),
	)

	if err := s.repo.Create(ctx, l); err != nil {
		return nil, s.mapWriteError(err, 0)
	}
	return l, nil
}

// Update обновляет запись. partial — PATCH.
func (s *LookupService) Update(ctx context.Context, id int64, in LookupInput, partial bool) (*model.Lookup, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(l, in, partial); err != nil {
		return nil, err
	}

	s.logger.Info("Обновление записи справочника",
		slog.String("kind", string(s.kind)),
		slog.Int64("id", id),
		slog.String(string(s.kind), l.Name),
	)

	if err := s.repo.Update(ctx, l); err != nil {
		return nil, s.mapWriteError(err, id)
	}
	return l, nil
}

// Delete удаляет запись вместе со ссылающимися заявками.
func (s *LookupService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s %d", ErrNotFound, s.kind, id)
		}
		return err
	}
	s.logger.Info("Удаление записи справочника",
		slog.String("kind", string(s.kind)),
		slog.Int64("id", id),
	)
	return nil
}

func (s *LookupService) apply(l *model.Lookup, in LookupInput, partial bool) error {
	verr := newValidationError()
	if v, ok := checkString(verr, string(s.kind), in.Value, !partial, s.kind.MaxLength()); ok {
		l.Name = v
	}
	return verr.OrNil()
}

func (s *LookupService) mapWriteError(err error, id int64) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return FieldError(string(s.kind), msgUnique(s.kind.Title(), lookupLabels[s.kind]))
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s %d", ErrNotFound, s.kind, id)
	default:
		return err
	}
}
