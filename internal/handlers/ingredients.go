package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"restrodesk/internal/ledger"
	applog "restrodesk/internal/log"
	"restrodesk/models"
)

type ingredientCreateRequest struct {
	Name          string  `json:"name"`
	Unit          string  `json:"unit"`
	StockQuantity float64 `json:"stock_quantity"`
	CostPerUnit   int64   `json:"cost_per_unit"`
	ReorderLevel  float64 `json:"reorder_level"`
	Notes         string  `json:"notes"`
}

type restockRequest struct {
	Quantity float64 `json:"quantity"`
}

type availabilityRequest struct {
	Items []struct {
		IngredientID uint    `json:"ingredient_id"`
		Quantity     float64 `json:"quantity"`
	} `json:"items"`
}

// ListIngredients returns every raw material with its current stock level.
func ListIngredients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var ingredients []models.Ingredient
	if err := database.WithContext(ctx).Order("name asc").Find(&ingredients).Error; err != nil {
		applog.Error(ctx, "failed to list ingredients", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredients")
		return
	}
	writeJSON(w, http.StatusOK, ingredients)
}

// CreateIngredient registers a new raw material.
func CreateIngredient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload ingredientCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid ingredient payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeDomainError(w, r, &models.ValidationError{Field: "name", Reason: "is required"})
		return
	}
	if strings.TrimSpace(payload.Unit) == "" {
		writeDomainError(w, r, &models.ValidationError{Field: "unit", Reason: "is required"})
		return
	}
	if payload.StockQuantity < 0 {
		writeDomainError(w, r, &models.ValidationError{Field: "stock_quantity", Reason: "must not be negative"})
		return
	}
	cost, err := models.NewMoney(payload.CostPerUnit)
	if err != nil {
		writeDomainError(w, r, &models.ValidationError{Field: "cost_per_unit", Reason: "must not be negative"})
		return
	}

	var count int64
	if err := database.WithContext(ctx).Model(&models.Ingredient{}).Where("name = ?", name).Count(&count).Error; err != nil {
		applog.Error(ctx, "failed to check ingredient name", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to create ingredient")
		return
	}
	if count > 0 {
		writeDomainError(w, r, &models.ConflictError{Resource: "ingredient", Reason: "an ingredient with that name already exists"})
		return
	}

	ingredient := models.Ingredient{
		Name:          name,
		Unit:          strings.TrimSpace(payload.Unit),
		StockQuantity: payload.StockQuantity,
		CostPerUnit:   cost,
		ReorderLevel:  payload.ReorderLevel,
		Notes:         strings.TrimSpace(payload.Notes),
	}
	if err := database.WithContext(ctx).Create(&ingredient).Error; err != nil {
		applog.Error(ctx, "failed to create ingredient", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to create ingredient")
		return
	}

	applog.Info(ctx, "ingredient created", "id", ingredient.ID, "name", ingredient.Name)
	writeJSON(w, http.StatusCreated, ingredient)
}

// RestockIngredient records an incoming delivery for one ingredient.
func RestockIngredient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var payload restockRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid restock payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := deps.Ledger.Restock(ctx, id, payload.Quantity); err != nil {
		writeDomainError(w, r, err)
		return
	}

	var ingredient models.Ingredient
	if err := database.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		applog.Error(ctx, "failed to reload ingredient after restock", "error", err, "id", id)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredient")
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}

// CheckAvailability reports, per requested ingredient, whether current
// stock covers the quantity and by how much it falls short.
func CheckAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid availability payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	reqs := make([]ledger.Requirement, 0, len(payload.Items))
	for _, item := range payload.Items {
		reqs = append(reqs, ledger.Requirement{IngredientID: item.IngredientID, Quantity: item.Quantity})
	}

	results, err := deps.Ledger.CheckAvailability(ctx, reqs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
