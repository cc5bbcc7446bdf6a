package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/usecase/serviceweeks"
	"chapel-liturgy/internal/usecase/services"
	"chapel-liturgy/internal/usecase/templates"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// decodeJSON строго разбирает тело: неизвестные поля и лишние данные отклоняются.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("некорректное тело запроса: %w", err)
	}
	if dec.More() {
		return errors.New("некорректное тело запроса: лишние данные")
	}
	return nil
}

// writeDomainError переводит ошибку сценария в HTTP-ответ.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := templates.AsValidationError(err); ok {
		writeError(w, http.StatusUnprocessableEntity, verr.Message, string(verr.Rule))
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", "not_found")
	case errors.Is(err, services.ErrInvalidService):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "invalid_service")
	case errors.Is(err, serviceweeks.ErrWeekStart), errors.Is(err, domain.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error(), "bad_request")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "already exists", "conflict")
	case errors.Is(err, domain.ErrUpstream):
		writeError(w, http.StatusBadGateway, "calendar provider unavailable", "upstream")
	default:
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("httpapi: внутренняя ошибка")
		writeError(w, http.StatusInternalServerError, "internal error", "internal")
	}
}
