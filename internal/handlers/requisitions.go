package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	applog "restrodesk/internal/log"
	"restrodesk/internal/requisitions"
	"restrodesk/models"
)

type requisitionCreateRequest struct {
	Notes string                     `json:"notes"`
	Items []requisitions.ItemRequest `json:"items"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// ListRequisitions returns material requests newest first.
func ListRequisitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var results []models.Requisition
	query := database.WithContext(ctx).Preload("Items").Order("id desc")
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list requisitions", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load requisitions")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// CreateRequisition opens a pending material request for the signed-in
// staff member. No stock moves until approval.
func CreateRequisition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	staff, err := currentUser(r)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		applog.Error(ctx, "failed to load requesting user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to create requisition")
		return
	}

	var payload requisitionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid requisition payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	requisition, err := deps.Requisitions.Create(ctx, staff, payload.Items, payload.Notes)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, requisition)
}

// ApproveRequisition deducts the requested quantities and marks the
// request approved. A shortage rejects the request instead; the
// response then carries the full shortage list.
func ApproveRequisition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	approver, err := currentUser(r)
	if err != nil {
		applog.Error(ctx, "failed to load approving user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to approve requisition")
		return
	}

	requisition, err := deps.Requisitions.Approve(ctx, id, approver)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requisition)
}

// RejectRequisition declines a pending request without touching stock.
func RejectRequisition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	approver, err := currentUser(r)
	if err != nil {
		applog.Error(ctx, "failed to load rejecting user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to reject requisition")
		return
	}

	var payload rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid rejection payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	requisition, err := deps.Requisitions.Reject(ctx, id, approver, payload.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requisition)
}
