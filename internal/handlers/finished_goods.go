package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	applog "restrodesk/internal/log"
	"restrodesk/models"
)

type recipeLineRequest struct {
	IngredientID uint    `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
}

type finishedGoodRequest struct {
	Name         string              `json:"name"`
	Category     string              `json:"category"`
	SellingPrice int64               `json:"selling_price"`
	Taxable      *bool               `json:"taxable"`
	Recipe       []recipeLineRequest `json:"recipe"`
}

type produceRequest struct {
	Quantity int `json:"quantity"`
}

// ListFinishedGoods returns the menu with recipes. Reads go through the
// projection cache when one is configured.
func ListFinishedGoods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	goods, err := deps.Menu.Get(ctx, loadFinishedGoods)
	if err != nil {
		applog.Error(ctx, "failed to list finished goods", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load finished goods")
		return
	}
	writeJSON(w, http.StatusOK, goods)
}

func loadFinishedGoods(ctx context.Context) ([]models.FinishedGood, error) {
	var goods []models.FinishedGood
	err := database.WithContext(ctx).
		Preload("Recipe").
		Order("name asc").
		Find(&goods).Error
	return goods, err
}

// CreateFinishedGood registers a menu item together with its recipe.
func CreateFinishedGood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload finishedGoodRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid finished good payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeDomainError(w, r, &models.ValidationError{Field: "name", Reason: "is required"})
		return
	}
	price, err := models.NewMoney(payload.SellingPrice)
	if err != nil {
		writeDomainError(w, r, &models.ValidationError{Field: "selling_price", Reason: "must not be negative"})
		return
	}
	recipe, rerr := buildRecipe(ctx, payload.Recipe)
	if rerr != nil {
		writeDomainError(w, r, rerr)
		return
	}

	var count int64
	if err := database.WithContext(ctx).Model(&models.FinishedGood{}).Where("name = ?", name).Count(&count).Error; err != nil {
		applog.Error(ctx, "failed to check finished good name", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to create finished good")
		return
	}
	if count > 0 {
		writeDomainError(w, r, &models.ConflictError{Resource: "finished_good", Reason: "a finished good with that name already exists"})
		return
	}

	taxable := true
	if payload.Taxable != nil {
		taxable = *payload.Taxable
	}

	good := models.FinishedGood{
		Name:         name,
		Category:     strings.TrimSpace(payload.Category),
		SellingPrice: price,
		Taxable:      taxable,
		Recipe:       recipe,
	}
	if err := database.WithContext(ctx).Create(&good).Error; err != nil {
		applog.Error(ctx, "failed to create finished good", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to create finished good")
		return
	}

	deps.Menu.Invalidate(ctx)
	applog.Info(ctx, "finished good created", "id", good.ID, "name", good.Name)
	writeJSON(w, http.StatusCreated, good)
}

// UpdateFinishedGood changes a menu item. The recipe may only be
// replaced while the good has no production history.
func UpdateFinishedGood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var good models.FinishedGood
	if err := database.WithContext(ctx).Preload("Recipe").First(&good, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load finished good", "error", err, "id", id)
		writeJSONError(w, http.StatusInternalServerError, "unable to load finished good")
		return
	}

	var payload finishedGoodRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid finished good payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeDomainError(w, r, &models.ValidationError{Field: "name", Reason: "is required"})
		return
	}
	price, err := models.NewMoney(payload.SellingPrice)
	if err != nil {
		writeDomainError(w, r, &models.ValidationError{Field: "selling_price", Reason: "must not be negative"})
		return
	}

	if len(payload.Recipe) > 0 {
		produced, err := deps.Production.HasHistory(ctx, good.ID)
		if err != nil {
			applog.Error(ctx, "failed to check production history", "error", err, "id", good.ID)
			writeJSONError(w, http.StatusInternalServerError, "unable to update finished good")
			return
		}
		if produced {
			writeDomainError(w, r, &models.ConflictError{Resource: "finished_good", Reason: "recipe is frozen once the good has production history"})
			return
		}
	}

	updates := map[string]any{
		"name":          name,
		"category":      strings.TrimSpace(payload.Category),
		"selling_price": price,
	}
	if payload.Taxable != nil {
		updates["taxable"] = *payload.Taxable
	}
	if err := database.WithContext(ctx).Model(&good).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to update finished good", "error", err, "id", good.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to update finished good")
		return
	}

	if len(payload.Recipe) > 0 {
		recipe, rerr := buildRecipe(ctx, payload.Recipe)
		if rerr != nil {
			writeDomainError(w, r, rerr)
			return
		}
		if err := database.WithContext(ctx).Model(&good).Association("Recipe").Replace(recipe); err != nil {
			applog.Error(ctx, "failed to replace recipe", "error", err, "id", good.ID)
			writeJSONError(w, http.StatusInternalServerError, "unable to update recipe")
			return
		}
	}

	if err := database.WithContext(ctx).Preload("Recipe").First(&good, good.ID).Error; err != nil {
		applog.Error(ctx, "failed to reload finished good", "error", err, "id", good.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load updated record")
		return
	}

	deps.Menu.Invalidate(ctx)
	writeJSON(w, http.StatusOK, good)
}

// DeleteFinishedGood removes a menu item. Goods with units still in
// stock cannot be deleted.
func DeleteFinishedGood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var good models.FinishedGood
	if err := database.WithContext(ctx).First(&good, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load finished good for delete", "error", err, "id", id)
		writeJSONError(w, http.StatusInternalServerError, "unable to load finished good")
		return
	}

	if good.StockQuantity != 0 {
		writeDomainError(w, r, &models.ConflictError{Resource: "finished_good", Reason: "cannot delete a good with units in stock"})
		return
	}

	if err := database.WithContext(ctx).Select("Recipe").Delete(&good).Error; err != nil {
		applog.Error(ctx, "failed to delete finished good", "error", err, "id", id)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete finished good")
		return
	}

	deps.Menu.Invalidate(ctx)
	applog.Info(ctx, "finished good deleted", "id", id, "name", good.Name)
	w.WriteHeader(http.StatusNoContent)
}

// Produce runs a production batch for a finished good.
func Produce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var payload produceRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid production payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	record, err := deps.Production.Produce(ctx, id, payload.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	deps.Menu.Invalidate(ctx)
	writeJSON(w, http.StatusCreated, record)
}

func buildRecipe(ctx context.Context, lines []recipeLineRequest) ([]models.RecipeItem, error) {
	recipe := make([]models.RecipeItem, 0, len(lines))
	for _, line := range lines {
		if line.IngredientID == 0 {
			return nil, &models.ValidationError{Field: "recipe", Reason: "ingredient_id is required on every line"}
		}
		if line.Quantity <= 0 {
			return nil, &models.ValidationError{Field: "recipe", Reason: "quantity must be positive on every line"}
		}
		var count int64
		if err := database.WithContext(ctx).Model(&models.Ingredient{}).Where("id = ?", line.IngredientID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, &models.ValidationError{Field: "recipe", Reason: "references an unknown ingredient"}
		}
		recipe = append(recipe, models.RecipeItem{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
			Unit:         strings.TrimSpace(line.Unit),
		})
	}
	return recipe, nil
}
