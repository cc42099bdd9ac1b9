// applications.go — обработчики /applications/.
package handlers

import (
	"net/http"

	"github.com/bigkaa/servicedesk/internal/api/generated"
	"github.com/bigkaa/servicedesk/internal/domain/model"
	"github.com/bigkaa/servicedesk/internal/service"
)

// ListApplications — GET /applications/ (новые первыми).
func (h *APIHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	list, err := h.applications.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	items := make([]generated.Application, 0, len(list))
	for _, a := range list {
		items = append(items, h.applicationToAPI(a))
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateApplication — POST /applications/.
func (h *APIHandler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeApplication(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	a, err := h.applications.Create(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.applicationToAPI(a))
}

// GetApplication — GET /applications/{id}/.
func (h *APIHandler) GetApplication(w http.ResponseWriter, r *http.Request, id int64) {
	a, err := h.applications.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.applicationToAPI(a))
}

// UpdateApplication — PUT /applications/{id}/.
func (h *APIHandler) UpdateApplication(w http.ResponseWriter, r *http.Request, id int64) {
	h.updateApplication(w, r, id, false)
}

// PartialUpdateApplication — PATCH /applications/{id}/.
func (h *APIHandler) PartialUpdateApplication(w http.ResponseWriter, r *http.Request, id int64) {
	h.updateApplication(w, r, id, true)
}

func (h *APIHandler) updateApplication(w http.ResponseWriter, r *http.Request, id int64, partial bool) {
	in, err := h.decodeApplication(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	a, err := h.applications.Update(r.Context(), id, in, partial)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.applicationToAPI(a))
}

// DeleteApplication — DELETE /applications/{id}/.
func (h *APIHandler) DeleteApplication(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.applications.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) decodeApplication(w http.ResponseWriter, r *http.Request) (service.ApplicationInput, error) {
	b, err := decodeBody(w, r)
	if err != nil {
		return service.ApplicationInput{}, err
	}
	return service.ApplicationInput{
		Identifier:     b.String("identifier"),
		Correction:     b.String("correction"),
		StartTime:      b.Time("start_time", h.loc),
		EndTime:        b.Time("end_time", h.loc),
		Brigade:        b.Ref("brigade"),
		Location:       b.Ref("location"),
		ObjectInstance: b.Ref("object_instance"),
		Status:         b.Ref("status"),
	}, nil
}

// applicationToAPI преобразует заявку в ответ; время выводится в часовом поясе сервиса.
func (h *APIHandler) applicationToAPI(a *model.Application) generated.Application {
	resp := generated.Application{
		Id:             a.ID,
		Identifier:     a.Identifier,
		Correction:     a.Correction,
		StartTime:      a.StartTime.In(h.loc),
		Brigade:        a.BrigadeID,
		BrigadeNumber:  a.BrigadeNumber,
		Location:       a.LocationID,
		LocationName:   a.LocationName,
		ObjectInstance: a.ObjectID,
		ObjectName:     a.ObjectName,
		Status:         a.StatusID,
		StatusName:     a.StatusName,
	}
	if a.EndTime != nil {
		end := a.EndTime.In(h.loc)
		resp.EndTime = &end
	}
	return resp
}
