// brigades.go — обработчики /brigades/.
package handlers

import (
	"net/http"

	"github.com/bigkaa/servicedesk/internal/api/generated"
	"github.com/bigkaa/servicedesk/internal/domain/model"
	"github.com/bigkaa/servicedesk/internal/service"
)

// ListBrigades — GET /brigades/.
func (h *APIHandler) ListBrigades(w http.ResponseWriter, r *http.Request) {
	list, err := h.brigades.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	items := make([]generated.Brigade, 0, len(list))
	for _, b := range list {
		items = append(items, brigadeToAPI(b))
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateBrigade — POST /brigades/.
func (h *APIHandler) CreateBrigade(w http.ResponseWriter, r *http.Request) {
	in, err := decodeBrigade(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	b, err := h.brigades.Create(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, brigadeToAPI(b))
}

// GetBrigade — GET /brigades/{id}/.
func (h *APIHandler) GetBrigade(w http.ResponseWriter, r *http.Request, id int64) {
	b, err := h.brigades.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, brigadeToAPI(b))
}

// UpdateBrigade — PUT /brigades/{id}/.
func (h *APIHandler) UpdateBrigade(w http.ResponseWriter, r *http.Request, id int64) {
	h.updateBrigade(w, r, id, false)
}

// PartialUpdateBrigade — PATCH /brigades/{id}/.
func (h *APIHandler) PartialUpdateBrigade(w http.ResponseWriter, r *http.Request, id int64) {
	h.updateBrigade(w, r, id, true)
}

func (h *APIHandler) updateBrigade(w http.ResponseWriter, r *http.Request, id int64, partial bool) {
	in, err := decodeBrigade(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	b, err := h.brigades.Update(r.Context(), id, in, partial)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, brigadeToAPI(b))
}

// DeleteBrigade — DELETE /brigades/{id}/.
func (h *APIHandler) DeleteBrigade(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.brigades.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBrigade(w http.ResponseWriter, r *http.Request) (service.BrigadeInput, error) {
	b, err := decodeBody(w, r)
	if err != nil {
		return service.BrigadeInput{}, err
	}
	return service.BrigadeInput{Brigade: b.Int("brigade")}, nil
}

func brigadeToAPI(b *model.Brigade) generated.Brigade {
	return generated.Brigade{Id: b.ID, Brigade: b.Number}
}
