package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"chapel-liturgy/internal/domain"
)

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Templates.List(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]templateDTO, 0, len(items))
	for _, t := range items {
		out = append(out, toTemplateDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	h.saveTemplate(w, r, "")
}

func (h *Handler) updateTemplate(w http.ResponseWriter, r *http.Request) {
	h.saveTemplate(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) saveTemplate(w http.ResponseWriter, r *http.Request, id string) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}
	candidate, err := req.toTemplate(chi.URLParam(r, "tenantID"), id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}
	var saved domain.ServiceTemplate
	status := http.StatusOK
	if id == "" {
		saved, err = h.deps.Templates.Create(r.Context(), candidate)
		status = http.StatusCreated
	} else {
		saved, err = h.deps.Templates.Update(r.Context(), candidate)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, status, toTemplateDTO(saved))
}

func (h *Handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Templates.Delete(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listWeeks(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Weeks.List(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]weekDTO, 0, len(items))
	for _, wk := range items {
		out = append(out, toWeekDTO(wk))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createWeek(w http.ResponseWriter, r *http.Request) {
	var req weekRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}
	if req.Start.IsZero() {
		writeError(w, http.StatusBadRequest, "start jest wymagany", "bad_request")
		return
	}
	week, report, err := h.deps.Weeks.Create(r.Context(), chi.URLParam(r, "tenantID"), req.Start)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWeekResponse(h.deps.Conv, week, report))
}

func (h *Handler) deleteWeek(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Weeks.Delete(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	if values.Get("from") == "" || values.Get("to") == "" {
		writeError(w, http.StatusBadRequest, "from i to są wymagane", "bad_request")
		return
	}
	from, err := h.parseInstant(values.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from: "+err.Error(), "bad_request")
		return
	}
	to, err := h.parseInstant(values.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to: "+err.Error(), "bad_request")
		return
	}
	items, err := h.deps.Services.List(r.Context(), chi.URLParam(r, "tenantID"), from, to)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceDTOs(h.deps.Conv, items))
}

func (h *Handler) createService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}
	saved, err := h.deps.Services.Create(r.Context(), domain.Service{
		TenantID:    chi.URLParam(r, "tenantID"),
		Date:        req.Date,
		Category:    req.Category,
		MassType:    req.MassType,
		CustomTitle: req.CustomTitle,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceDTO(h.deps.Conv, saved))
}

func (h *Handler) deleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Services.Delete(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
