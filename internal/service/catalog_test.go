package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestBrigadeService_CreateAndValidate(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	b, err := s.brigades.Create(ctx, BrigadeInput{Brigade: Val[int64](3)})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if b.ID == 0 || b.Number != 3 {
		t.Errorf("Create() = %+v", b)
	}

	tests := []struct {
		name string
		in   BrigadeInput
		msg  string
	}{
		{"отсутствует", BrigadeInput{}, MsgRequired},
		{"null", BrigadeInput{Brigade: Null[int64]()}, MsgNull},
		{"ноль", BrigadeInput{Brigade: Val[int64](0)}, "Убедитесь, что это значение больше либо равно 1."},
		{"больше int4", BrigadeInput{Brigade: Val[int64](1 << 40)}, "Убедитесь, что это значение меньше либо равно 2147483647."},
		{"не число", BrigadeInput{Brigade: Invalid[int64](MsgInvalidInt)}, MsgInvalidInt},
		{"дубликат", BrigadeInput{Brigade: Val[int64](3)}, "Бригада с таким Номер бригады уже существует."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.brigades.Create(ctx, tt.in)
			wantFieldError(t, fieldErrors(t, err), "brigade", tt.msg)
		})
	}
}

func TestBrigadeService_UpdatePartial(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	b, err := s.brigades.Create(ctx, BrigadeInput{Brigade: Val[int64](1)})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// PATCH без полей — ничего не меняется
	got, err := s.brigades.Update(ctx, b.ID, BrigadeInput{}, true)
	if err != nil {
		t.Fatalf("Update(partial) ошибка: %v", err)
	}
	if got.Number != 1 {
		t.Errorf("Number = %d, ожидали 1", got.Number)
	}

	// PUT без полей — обязательное поле
	_, err = s.brigades.Update(ctx, b.ID, BrigadeInput{}, false)
	wantFieldError(t, fieldErrors(t, err), "brigade", MsgRequired)

	got, err = s.brigades.Update(ctx, b.ID, BrigadeInput{Brigade: Val[int64](8)}, false)
	if err != nil || got.Number != 8 {
		t.Fatalf("Update() = %+v, %v", got, err)
	}

	if _, err := s.brigades.Update(ctx, 9999, BrigadeInput{Brigade: Val[int64](2)}, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update несуществующей = %v, ожидали ErrNotFound", err)
	}
	if err := s.brigades.Delete(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete несуществующей = %v, ожидали ErrNotFound", err)
	}
}

func TestLookupService_Validation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	l, err := s.locations.Create(ctx, LookupInput{Value: Val("  Boiler Room 3 ")})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if l.Name != "Boiler Room 3" {
		t.Errorf("Name = %q, ожидали обрезку пробелов", l.Name)
	}

	_, err = s.locations.Create(ctx, LookupInput{Value: Val("Boiler Room 3")})
	wantFieldError(t, fieldErrors(t, err), "location", "Местоположение с таким Местоположение уже существует.")

	_, err = s.locations.Create(ctx, LookupInput{Value: Val("   ")})
	wantFieldError(t, fieldErrors(t, err), "location", MsgBlank)

	_, err = s.locations.Create(ctx, LookupInput{Value: Val(strings.Repeat("я", 65))})
	wantFieldError(t, fieldErrors(t, err), "location", "Убедитесь, что это значение содержит не более 64 символов.")

	if _, err := s.locations.Create(ctx, LookupInput{Value: Val(strings.Repeat("я", 64))}); err != nil {
		t.Errorf("64 символа должны проходить: %v", err)
	}

	_, err = s.statuses.Create(ctx, LookupInput{Value: Val(strings.Repeat("s", 33))})
	wantFieldError(t, fieldErrors(t, err), "status", "Убедитесь, что это значение содержит не более 32 символов.")

	_, err = s.objects.Create(ctx, LookupInput{})
	wantFieldError(t, fieldErrors(t, err), "object", MsgRequired)
}

func TestLookupService_ListOrdered(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	for _, name := range []string{"Закрыта", "Аннулирована", "В работе"} {
		if _, err := s.statuses.Create(ctx, LookupInput{Value: Val(name)}); err != nil {
			t.Fatalf("Create(%s) ошибка: %v", name, err)
		}
	}

	list, err := s.statuses.List(ctx)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	want := []string{"Аннулирована", "В работе", "Закрыта"}
	for i, l := range list {
		if l.Name != want[i] {
			t.Errorf("List()[%d] = %q, ожидали %q", i, l.Name, want[i])
		}
	}
}
