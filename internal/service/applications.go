// applications.go — сервис заявок.
// Проверяет поля и существование бригады и справочников перед записью.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/servicedesk/internal/domain/model"
	"github.com/bigkaa/servicedesk/internal/repository"
)

// Максимальная длина идентификатора заявки.
const identifierMaxLen = 16

// Сообщения о несуществующих ссылках.
const (
	MsgBrigadeMissing  = "Бригада с таким ID не существует."
	MsgLocationMissing = "Местоположение с таким ID не существует."
	MsgObjectMissing   = "Объект с таким ID не существует."
	MsgStatusMissing   = "Статус с таким ID не существует."
)

// ApplicationInput — входные данные заявки.
// Имена полей совпадают с JSON: brigade, location, object_instance, status.
type ApplicationInput struct {
	Identifier     Field[string]
	Correction     Field[string]
	StartTime      Field[time.Time]
	EndTime        Field[time.Time]
	Brigade        Field[int64]
	Location       Field[int64]
	ObjectInstance Field[int64]
	Status         Field[int64]
}

// ApplicationService — CRUD заявок.
type ApplicationService struct {
	repo      repository.ApplicationRepository
	brigades  repository.BrigadeRepository
	locations repository.LookupRepository
	objects   repository.LookupRepository
	statuses  repository.LookupRepository
	logger    *slog.Logger
}

// NewApplicationService создаёт сервис заявок.
func NewApplicationService(
	repo repository.ApplicationRepository,
	brigades repository.BrigadeRepository,
	locations, objects, statuses repository.LookupRepository,
	logger *slog.Logger,
) *ApplicationService {
	return &ApplicationService{
		repo:      repo,
		brigades:  brigades,
		locations: locations,
		objects:   objects,
		statuses:  statuses,
		logger:    logger.With(slog.String("component", "application_service")),
	}
}

// List возвращает заявки, новые сначала.
func (s *ApplicationService) List(ctx context.Context) ([]*model.Application, error) {
	return s.repo.List(ctx)
}

// Get возвращает заявку по ID.
func (s *ApplicationService) Get(ctx context.Context, id int64) (*model.Application, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: заявка %d", ErrNotFound, id)
		}
		return nil, err
	}
	return a, nil
}

// Create проверяет входные данные и создаёт заявку.
func (s *ApplicationService) Create(ctx context.Context, in ApplicationInput) (*model.Application, error) {
	a := &model.Application{}
	if err := s.apply(ctx, a, in, false); err != nil {
		return nil, err
	}

	s.logger.Info("Создание заявки", applicationAttrs(a)...)

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, s.mapWriteError(err, 0)
	}
	return a, nil
}

// Update обновляет заявку. partial — PATCH.
func (s *ApplicationService) Update(ctx context.Context, id int64, in ApplicationInput, partial bool) (*model.Application, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, a, in, partial); err != nil {
		return nil, err
	}

	s.logger.Info("Обновление заявки", append([]any{slog.Int64("id", id)}, applicationAttrs(a)...)...)

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, s.mapWriteError(err, id)
	}
	return a, nil
}

// Delete удаляет заявку.
func (s *ApplicationService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: заявка %d", ErrNotFound, id)
		}
		return err
	}
	s.logger.Info("Удаление заявки", slog.Int64("id", id))
	return nil
}

// apply проверяет поля и переносит их в a.
// Ссылки проверяются по одной: каждая несуществующая даёт своё сообщение.
func (s *ApplicationService) apply(ctx context.Context, a *model.Application, in ApplicationInput, partial bool) error {
	required := !partial
	verr := newValidationError()

	if v, ok := checkString(verr, "identifier", in.Identifier, required, identifierMaxLen); ok {
		a.Identifier = v
	}
	if v, ok := checkOptionalText(verr, "correction", in.Correction); ok {
		a.Correction = v
	}
	if v, ok := checkTime(verr, "start_time", in.StartTime, required, false); ok {
		a.StartTime = *v
	}
	if v, ok := checkTime(verr, "end_time", in.EndTime, false, true); ok {
		a.EndTime = v
	}

	if v, ok := checkRef(verr, "brigade", in.Brigade, false, true); ok {
		if v != nil {
			if err := s.checkExists(ctx, verr, "brigade", *v, s.brigades.Exists, MsgBrigadeMissing); err != nil {
				return err
			}
		}
		a.BrigadeID = v
	}
	refs := []struct {
		name   string
		field  Field[int64]
		exists func(context.Context, int64) (bool, error)
		msg    string
		target *int64
	}{
		{"location", in.Location, s.locations.Exists, MsgLocationMissing, &a.LocationID},
		{"object_instance", in.ObjectInstance, s.objects.Exists, MsgObjectMissing, &a.ObjectID},
		{"status", in.Status, s.statuses.Exists, MsgStatusMissing, &a.StatusID},
	}
	for _, ref := range refs {
		v, ok := checkRef(verr, ref.name, ref.field, required, false)
		if !ok {
			continue
		}
		if err := s.checkExists(ctx, verr, ref.name, *v, ref.exists, ref.msg); err != nil {
			return err
		}
		*ref.target = *v
	}

	return verr.OrNil()
}

// checkExists добавляет msg к полю, если записи с id нет.
// Возвращает только ошибки хранилища.
func (s *ApplicationService) checkExists(
	ctx context.Context,
	verr *ValidationError,
	field string,
	id int64,
	exists func(context.Context, int64) (bool, error),
	msg string,
) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return fmt.Errorf("проверка %s: %w", field, err)
	}
	if !ok {
		verr.Add(field, msg)
	}
	return nil
}

func (s *ApplicationService) mapWriteError(err error, id int64) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return FieldError("identifier", msgUnique("Заявка", "Идентификатор заявки"))
	case errors.Is(err, repository.ErrForeignKey):
		// Справочник удалён между проверкой и записью.
		return FieldError("non_field_errors", "Связанная запись была удалена. Повторите запрос.")
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: заявка %d", ErrNotFound, id)
	default:
		return err
	}
}

// applicationAttrs — проверенные поля заявки для журнала.
func applicationAttrs(a *model.Application) []any {
	attrs := []any{
		slog.String("identifier", a.Identifier),
		slog.Time("start_time", a.StartTime),
		slog.Int64("location", a.LocationID),
		slog.Int64("object_instance", a.ObjectID),
		slog.Int64("status", a.StatusID),
	}
	if a.BrigadeID != nil {
		attrs = append(attrs, slog.Int64("brigade", *a.BrigadeID))
	}
	if a.EndTime != nil {
		attrs = append(attrs, slog.Time("end_time", *a.EndTime))
	}
	if a.Correction != nil {
		attrs = append(attrs, slog.String("correction", *a.Correction))
	}
	return attrs
}
