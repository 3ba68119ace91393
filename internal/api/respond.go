package api

import (
	"encoding/json"
	"net/http"

	"github.com/carebook/appointment-booking/internal/apperr"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps the error taxonomy onto HTTP statuses in one
// place. Transient store failures surface as 503 so clients know the
// request is safe to retry.
func writeDomainError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindValidation:
		writeError(w, http.StatusBadRequest, kind.String(), err.Error())
	case apperr.KindNotFound:
		writeError(w, http.StatusNotFound, kind.String(), err.Error())
	case apperr.KindForbidden:
		writeError(w, http.StatusForbidden, kind.String(), err.Error())
	case apperr.KindConflict:
		writeError(w, http.StatusConflict, kind.String(), err.Error())
	case apperr.KindTransientStore:
		writeError(w, http.StatusServiceUnavailable, kind.String(), "store temporarily unavailable, retry with backoff")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
