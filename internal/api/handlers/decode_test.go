package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/servicedesk/internal/service"
)

func decodeString(t *testing.T, s string) (body, error) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(s))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return decodeBody(httptest.NewRecorder(), r)
}

func TestDecodeBody(t *testing.T) {
	b, err := decodeString(t, "")
	if err != nil || len(b) != 0 {
		t.Errorf("пустое тело: %v, %v", b, err)
	}

	_, err = decodeString(t, `{"a":`)
	var reqErr *requestError
	if !errors.As(err, &reqErr) || reqErr.status != http.StatusBadRequest || !strings.HasPrefix(reqErr.detail, "Некорректный JSON: ") {
		t.Errorf("битый JSON: %v", err)
	}

	_, err = decodeString(t, `[1,2]`)
	if !errors.As(err, &reqErr) || len(reqErr.fields["non_field_errors"]) != 1 {
		t.Errorf("массив вместо объекта: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=1"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, err = decodeBody(httptest.NewRecorder(), r)
	if !errors.As(err, &reqErr) || reqErr.status != http.StatusUnsupportedMediaType {
		t.Errorf("форма: %v", err)
	}
}

func TestBodyFields(t *testing.T) {
	b, err := decodeString(t, `{
		"s": "текст", "n": 12, "ns": " 7 ", "f": 3.0, "frac": 1.5,
		"null": null, "bool": true, "obj": {}, "word": "abc"
	}`)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}

	if f := b.String("s"); !f.Present || f.Value != "текст" {
		t.Errorf("String(s) = %+v", f)
	}
	if f := b.String("n"); f.Value != "12" {
		t.Errorf("String(n) = %+v", f)
	}
	if f := b.String("bool"); f.Invalid != service.MsgInvalidString {
		t.Errorf("String(bool) = %+v", f)
	}
	if f := b.String("missing"); f.Present {
		t.Errorf("String(missing) = %+v", f)
	}
	if f := b.String("null"); !f.Null {
		t.Errorf("String(null) = %+v", f)
	}

	if f := b.Int("n"); f.Value != 12 {
		t.Errorf("Int(n) = %+v", f)
	}
	if f := b.Int("ns"); f.Value != 7 || f.Invalid != "" {
		t.Errorf("Int(ns) = %+v", f)
	}
	if f := b.Int("f"); f.Value != 3 {
		t.Errorf("Int(f) = %+v", f)
	}
	if f := b.Int("frac"); f.Invalid != service.MsgInvalidInt {
		t.Errorf("Int(frac) = %+v", f)
	}
	if f := b.Int("bool"); f.Invalid != service.MsgInvalidInt {
		t.Errorf("Int(bool) = %+v", f)
	}

	if f := b.Ref("word"); f.Invalid != service.MsgInvalidPK("str") {
		t.Errorf("Ref(word) = %+v", f)
	}
	if f := b.Ref("obj"); f.Invalid != service.MsgInvalidPK("dict") {
		t.Errorf("Ref(obj) = %+v", f)
	}
	if f := b.Ref("null"); !f.Null {
		t.Errorf("Ref(null) = %+v", f)
	}

	if got := b.Text("s"); got != "текст" {
		t.Errorf("Text(s) = %q", got)
	}
	if got := b.Text("obj"); got != "" {
		t.Errorf("Text(obj) = %q", got)
	}
}

func TestBodyTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	b, err := decodeString(t, `{
		"utc": "2024-05-01T08:30:00Z",
		"offset": "2024-05-01T10:30:00+02:00",
		"naive": "2024-05-01T10:30:00",
		"space": "2024-05-01 10:30",
		"date": "2024-05-01",
		"bad": "вчера",
		"num": 1714552200
	}`)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}

	want := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	for _, key := range []string{"utc", "offset", "naive", "space"} {
		f := b.Time(key, loc)
		if f.Invalid != "" || !f.Value.Equal(want) {
			t.Errorf("Time(%s) = %+v, ожидалось %v", key, f, want)
		}
	}
	if f := b.Time("date", loc); !f.Value.Equal(time.Date(2024, 4, 30, 22, 0, 0, 0, time.UTC)) {
		t.Errorf("Time(date) = %v", f.Value)
	}
	for _, key := range []string{"bad", "num"} {
		if f := b.Time(key, loc); f.Invalid != service.MsgInvalidTime {
			t.Errorf("Time(%s) = %+v", key, f)
		}
	}
}
