package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	applog "restrodesk/internal/log"
	"restrodesk/models"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps domain errors onto HTTP statuses. Shortage
// details travel with the 422 so a caller can resupply in one pass.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *models.ValidationError
	var stock *models.InsufficientStockError
	var transition *models.InvalidTransitionError
	var conflict *models.ConflictError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &stock):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": stock.Error(), "shortages": stock.Shortages})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, map[string]any{"error": transition.Error(), "from": transition.From, "to": transition.To})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{"error": conflict.Error(), "resource": conflict.Resource})
	default:
		applog.Error(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}
