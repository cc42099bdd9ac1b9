// lookups.go — обработчики справочников /locations/, /objects/, /statuses/.
// Все три справочника устроены одинаково: одно строковое поле, имя которого совпадает с видом.
package handlers

import (
	"net/http"

	"github.com/bigkaa/servicedesk/internal/api/generated"
	"github.com/bigkaa/servicedesk/internal/domain/model"
	"github.com/bigkaa/servicedesk/internal/service"
)

// lookupToAPI преобразует запись справочника в тип ответа по виду справочника.
func lookupToAPI(kind model.LookupKind, l *model.Lookup) any {
	switch kind {
	case model.KindLocation:
		return generated.Location{Id: l.ID, Location: l.Name}
	case model.KindObject:
		return generated.Object{Id: l.ID, Object: l.Name}
	default:
		return generated.Status{Id: l.ID, Status: l.Name}
	}
}

func (h *APIHandler) listLookups(w http.ResponseWriter, r *http.Request, svc *service.LookupService) {
	list, err := svc.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	items := make([]any, 0, len(list))
	for _, l := range list {
		items = append(items, lookupToAPI(svc.Kind(), l))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *APIHandler) createLookup(w http.ResponseWriter, r *http.Request, svc *service.LookupService) {
	b, err := decodeBody(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	l, err := svc.Create(r.Context(), service.LookupInput{Value: b.String(string(svc.Kind()))})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lookupToAPI(svc.Kind(), l))
}

func (h *APIHandler) getLookup(w http.ResponseWriter, r *http.Request, svc *service.LookupService, id int64) {
	l, err := svc.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lookupToAPI(svc.Kind(), l))
}

func (h *APIHandler) updateLookup(
	w http.ResponseWriter, r *http.Request, svc *service.LookupService, id int64, partial bool,
) {
	b, err := decodeBody(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	l, err := svc.Update(r.Context(), id, service.LookupInput{Value: b.String(string(svc.Kind()))}, partial)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lookupToAPI(svc.Kind(), l))
}

func (h *APIHandler) deleteLookup(w http.ResponseWriter, r *http.Request, svc *service.LookupService, id int64) {
	if err := svc.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Местоположения ---

// ListLocations — GET /locations/.
func (h *APIHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	h.listLookups(w, r, h.locations)
}

// CreateLocation — POST /locations/.
func (h *APIHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	h.createLookup(w, r, h.locations)
}

// GetLocation — GET /locations/{id}/.
func (h *APIHandler) GetLocation(w http.ResponseWriter, r *http.Request, id int64) {
	h.getLookup(w, r, h.locations, id)
}

// UpdateLocation — PUT /locations/{id}/.
func (h *APIHandler) UpdateLocation(w http.ResponseWriter, r *http.Request, id int64) {
	h.updateLookup(w, r, h.locations, id, false)
}

// PartialUpdateLocation — PATCH /locations/{id}/.
func (h *APIHandler) PartialUpdateLocation(w http.ResponseWriter, r *http.Request, id int64) {
	h.updateLookup(w, r, h.locations, id, true)
}

// DeleteLocation — DELETE /locations/{id}/.
func (h *APIHandler) DeleteLocation(w http.ResponseWriter, r *http.Request, id int64) {
	h.deleteLookup(w, r, h.locations, id)
}

// --- Объекты ---

// ListObjects — GET /objects/.
func (h *APIHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	h.listLookups(w, r, h.objects)
}

// CreateObject — POST /objects/.
func (h *APIHandler) CreateObject(w http.ResponseWriter, r *http.Request) {
	h.createLookup(w, r, h.objects)
}

// GetObject — GET /objects/{id}/.
func (h *APIHandler) GetObject(w http.ResponseWriter, r *http.Request, id int64) {
	h.getLookup(w, r, h.objects, id)
}

// UpdateObject — PUT /objects/{id}/.
func (h *APIHandler) UpdateObject(w http.ResponseWriter, r *http.Request, id int64) {
	h.updateLookup(w, r, h.objects, id, false)
}

// PartialUpdateObject — PATCH /objects/{id}/.
func (h *APIHandler) PartialUpdateObject(w http.ResponseWriter, r *http.Request, id int64) {
	h.updateLookup(w, r, h.objects, id, true)
}

// DeleteObject — DELETE /objects/{id}/.
func (h *APIHandler) DeleteObject(w http.ResponseWriter, r *http.Request, id int64) {
	h.deleteLookup(w, r, h.objects, id)
}

// --- Статусы ---

// ListStatuses — GET /statuses/.
func (h *APIHandler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	h.listLookups(w, r, h.statuses)
}

// CreateStatus — POST /statuses/.
func (h *APIHandler) CreateStatus(w http.ResponseWriter, r *http.Request) {
	h.createLookup(w, r, h.statuses)
}

// GetStatus — GET /statuses/{id}/.
func (h *APIHandler) GetStatus(w http.ResponseWriter, r *http.Request, id int64) {
	h.getLookup(w, r, h.statuses, id)
}

// UpdateStatus — PUT /statuses/{id}/.
func (h *APIHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, id int64) {
	h.updateLookup(w, r, h.statuses, id, false)
}

// PartialUpdateStatus — PATCH /statuses/{id}/.
func (h *APIHandler) PartialUpdateStatus(w http.ResponseWriter, r *http.Request, id int64) {
	h.updateLookup(w, r, h.statuses, id, true)
}

// DeleteStatus — DELETE /statuses/{id}/.
func (h *APIHandler) DeleteStatus(w http.ResponseWriter, r *http.Request, id int64) {
	h.deleteLookup(w, r, h.statuses, id)
}
