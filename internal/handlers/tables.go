package handlers

import (
	"encoding/json"
	"net/http"

	applog "restrodesk/internal/log"
	"restrodesk/models"
)

type tableCreateRequest struct {
	Number   int    `json:"number"`
	Capacity int    `json:"capacity"`
	Notes    string `json:"notes"`
}

type reserveRequest struct {
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	PartySize    int    `json:"party_size"`
}

// ListTables returns every table with its seating state.
func ListTables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var tables []models.Table
	if err := database.WithContext(ctx).Order("number asc").Find(&tables).Error; err != nil {
		applog.Error(ctx, "failed to list tables", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load tables")
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

// CreateTable registers a new dining table.
func CreateTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload tableCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid table payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	table, err := deps.Orders.CreateTable(ctx, payload.Number, payload.Capacity, payload.Notes)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, table)
}

// ReserveTable holds an available table for a named party.
func ReserveTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var payload reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid reservation payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	table, err := deps.Orders.ReserveTable(ctx, id, payload.CustomerName, payload.Phone, payload.PartySize)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// MarkTableCleaning moves an occupied table to cleaning once its orders
// are settled.
func MarkTableCleaning(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	table, err := deps.Orders.MarkTableCleaning(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// MarkTableAvailable returns a cleaned table to service.
func MarkTableAvailable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	table, err := deps.Orders.MarkTableAvailable(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}
