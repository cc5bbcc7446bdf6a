package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"

	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/usecase/calendar"
	"chapel-liturgy/internal/usecase/feasts"
)

func (h *Handler) getCalendar(w http.ResponseWriter, r *http.Request) {
	q, err := h.calendarQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}
	days, err := h.deps.Calendar.GetFeastsWithMasses(r.Context(), q)
	if err != nil {
		if errors.Is(err, domain.ErrUpstream) || errors.Is(err, domain.ErrUnknownColor) {
			// Страница расписания должна открываться и без календаря.
			h.log.Warn().Err(err).Str("tenant", q.TenantID).Msg("httpapi: календарь недоступен")
			writeJSON(w, http.StatusOK, calendarResponse{CalendarAvailable: false, Days: []feastDTO{}})
			return
		}
		h.writeDomainError(w, r, err)
		return
	}
	resp := calendarResponse{CalendarAvailable: true, Days: make([]feastDTO, 0, len(days))}
	for _, d := range days {
		resp.Days = append(resp.Days, feastDTO{Feast: d.Feast, Masses: toServiceDTOs(h.deps.Conv, d.Masses)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) calendarQuery(r *http.Request) (feasts.Query, error) {
	values := r.URL.Query()
	q := feasts.Query{TenantID: chi.URLParam(r, "tenantID")}

	var err error
	if q.Period.Start, err = optionalDate(values.Get("start")); err != nil {
		return q, fmt.Errorf("start: %w", err)
	}
	if q.Period.End, err = optionalDate(values.Get("end")); err != nil {
		return q, fmt.Errorf("end: %w", err)
	}
	if raw := values.Get("ref"); raw != "" {
		ref, err := h.parseInstant(raw)
		if err != nil {
			return q, fmt.Errorf("ref: %w", err)
		}
		q.ReferenceDate = ref
	}

	from, to := values.Get("services_from"), values.Get("services_to")
	if (from == "") != (to == "") {
		return q, errors.New("services_from i services_to muszą być podane razem")
	}
	if from != "" {
		window := feasts.Window{}
		if window.From, err = h.parseInstant(from); err != nil {
			return q, fmt.Errorf("services_from: %w", err)
		}
		if window.To, err = h.parseInstant(to); err != nil {
			return q, fmt.Errorf("services_to: %w", err)
		}
		if !window.From.Before(window.To) {
			return q, domain.ErrInvalidRange
		}
		q.ServiceWindow = &window
	}
	return q, nil
}

func optionalDate(raw string) (*domain.CivilDate, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := domain.ParseCivilDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseInstant принимает RFC3339 или дату YYYY-MM-DD (полночь по времени часовни).
func (h *Handler) parseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	d, err := domain.ParseCivilDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return h.deps.Conv.LocalDateTimeToUTC(d, 0, 0)
}

func (h *Handler) invalidateYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1583 || year > 9999 {
		writeError(w, http.StatusBadRequest, "invalid year", "bad_request")
		return
	}
	if err := h.deps.Admin.Invalidate(r.Context(), year); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "tag": calendar.CacheTag(year)})
}

type prewarmRequest struct {
	Years []int `json:"years"`
}

func (h *Handler) prewarm(w http.ResponseWriter, r *http.Request) {
	var req prewarmRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "bad_request")
			return
		}
	}
	if err := h.deps.Admin.Prewarm(r.Context(), req.Years...); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) createTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}
	if req.ID == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "id i slug są wymagane", "bad_request")
		return
	}
	tenant, err := h.deps.Tenants.CreateTenant(r.Context(), domain.Tenant{ID: req.ID, Name: req.Name, Slug: req.Slug})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenantRequest{ID: tenant.ID, Name: tenant.Name, Slug: tenant.Slug})
}
