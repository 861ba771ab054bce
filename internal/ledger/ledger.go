package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"restrodesk/internal/locks"
	applog "restrodesk/internal/log"
	"restrodesk/models"
)

// quantity comparisons tolerate float accumulation noise
const epsilon = 1e-9

// Requirement is one (ingredient, quantity) pair for an availability
// check. Quantities are always positive.
type Requirement struct {
	IngredientID uint
	Quantity     float64
}

// Availability is the result of checking one requirement against
// current stock.
type Availability struct {
	IngredientID uint    `json:"ingredient_id"`
	Name         string  `json:"name"`
	Available    bool    `json:"available"`
	Shortfall    float64 `json:"shortfall"`
	Unit         string  `json:"unit"`
}

// Delta is one signed stock adjustment. Negative quantities consume
// stock, positive quantities restock.
type Delta struct {
	IngredientID uint
	Quantity     float64
}

// Ledger is the single in-process authority for ingredient stock. All
// mutations go through ApplyDeltas, which serializes against concurrent
// writers on the same ingredients and commits all-or-nothing.
type Ledger struct {
	db     *gorm.DB
	locker *locks.EntityLocker
}

// New builds a Ledger over the given database and entity locker.
func New(db *gorm.DB, locker *locks.EntityLocker) *Ledger {
	return &Ledger{db: db, locker: locker}
}

// CheckAvailability reports, for each requirement, whether current
// stock covers it and by how much it falls short. It is a pure read and
// never blocks behind writers on unrelated ingredients.
func (l *Ledger) CheckAvailability(ctx context.Context, reqs []Requirement) ([]Availability, error) {
	if err := validateRequirements(reqs); err != nil {
		return nil, err
	}

	ingredients, err := loadIngredients(ctx, l.db, requirementIDs(reqs))
	if err != nil {
		return nil, err
	}

	results := make([]Availability, 0, len(reqs))
	for _, req := range reqs {
		ing := ingredients[req.IngredientID]
		shortfall := req.Quantity - ing.StockQuantity
		if shortfall < epsilon {
			shortfall = 0
		}
		results = append(results, Availability{
			IngredientID: req.IngredientID,
			Name:         ing.Name,
			Available:    shortfall == 0,
			Shortfall:    shortfall,
			Unit:         ing.Unit,
		})
	}
	return results, nil
}

// ApplyDeltas applies every stock adjustment atomically: either all
// deltas commit or none do. When any resulting stock would go negative
// the returned InsufficientStockError names every deficient ingredient
// with its shortfall, and no ingredient is touched. Each committed
// delta is recorded as an append-only StockMovement tagged with reason
// and reference.
func (l *Ledger) ApplyDeltas(ctx context.Context, reason, reference string, deltas []Delta) error {
	if len(deltas) == 0 {
		return &models.ValidationError{Field: "deltas", Reason: "at least one delta is required"}
	}

	merged := mergeDeltas(deltas)

	release := l.locker.AcquireAll(LockKeys(merged)...)
	defer release()

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return l.applyMerged(ctx, tx, reason, reference, merged)
	})
}

// ApplyDeltasTx is ApplyDeltas running inside a transaction the caller
// already opened, so stock deductions commit or roll back together with
// the caller's own writes. The caller must hold the entity locks for
// every target ingredient, see LockKeys, until the transaction ends.
func (l *Ledger) ApplyDeltasTx(ctx context.Context, tx *gorm.DB, reason, reference string, deltas []Delta) error {
	if len(deltas) == 0 {
		return &models.ValidationError{Field: "deltas", Reason: "at least one delta is required"}
	}
	return l.applyMerged(ctx, tx, reason, reference, mergeDeltas(deltas))
}

// LockKeys returns the entity-lock keys covering every ingredient the
// deltas target.
func LockKeys(deltas []Delta) []locks.Key {
	keys := make([]locks.Key, 0, len(deltas))
	seen := make(map[uint]struct{}, len(deltas))
	for _, d := range deltas {
		if _, dup := seen[d.IngredientID]; dup {
			continue
		}
		seen[d.IngredientID] = struct{}{}
		keys = append(keys, locks.Key{Kind: locks.KindIngredient, ID: d.IngredientID})
	}
	return keys
}

func (l *Ledger) applyMerged(ctx context.Context, tx *gorm.DB, reason, reference string, merged []Delta) error {
	ids := make([]uint, 0, len(merged))
	for _, d := range merged {
		ids = append(ids, d.IngredientID)
	}
	ingredients, err := loadIngredients(ctx, tx, ids)
	if err != nil {
		return err
	}

	var shortages []models.Shortage
	for _, d := range merged {
		ing := ingredients[d.IngredientID]
		resulting := ing.StockQuantity + d.Quantity
		if resulting < -epsilon {
			shortages = append(shortages, models.Shortage{
				IngredientID: d.IngredientID,
				Name:         ing.Name,
				Requested:    -d.Quantity,
				Available:    ing.StockQuantity,
				Shortfall:    -resulting,
				Unit:         ing.Unit,
			})
		}
	}
	if len(shortages) > 0 {
		applog.Debug(ctx, "ledger rejected deltas", "reason", reason, "shortages", len(shortages))
		return &models.InsufficientStockError{Shortages: shortages}
	}

	for _, d := range merged {
		result := tx.Model(&models.Ingredient{}).
			Where("id = ?", d.IngredientID).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", d.Quantity))
		if result.Error != nil {
			return fmt.Errorf("apply deltas: %w", result.Error)
		}
		movement := models.StockMovement{
			IngredientID: d.IngredientID,
			Delta:        d.Quantity,
			Reason:       reason,
			Reference:    reference,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("apply deltas: %w", err)
		}
	}

	applog.Debug(ctx, "ledger applied deltas", "reason", reason, "reference", reference, "count", len(merged))
	return nil
}

// Restock adds a positive quantity to a single ingredient.
func (l *Ledger) Restock(ctx context.Context, ingredientID uint, quantity float64) error {
	if quantity <= 0 {
		return &models.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	return l.ApplyDeltas(ctx, models.MovementRestock, "", []Delta{{IngredientID: ingredientID, Quantity: quantity}})
}

func loadIngredients(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]models.Ingredient, error) {
	var rows []models.Ingredient
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}

	byID := make(map[uint]models.Ingredient, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, &models.ValidationError{Field: "ingredient_id", Reason: fmt.Sprintf("ingredient %d does not exist", id)}
		}
	}
	return byID, nil
}

func validateRequirements(reqs []Requirement) error {
	if len(reqs) == 0 {
		return &models.ValidationError{Field: "requirements", Reason: "at least one requirement is required"}
	}
	for _, req := range reqs {
		if req.Quantity <= 0 {
			return &models.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
	}
	return nil
}

func requirementIDs(reqs []Requirement) []uint {
	ids := make([]uint, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.IngredientID)
	}
	return ids
}

// mergeDeltas sums adjustments targeting the same ingredient so each id
// is validated and written exactly once, preserving first-seen order.
func mergeDeltas(deltas []Delta) []Delta {
	index := make(map[uint]int, len(deltas))
	merged := make([]Delta, 0, len(deltas))
	for _, d := range deltas {
		if at, ok := index[d.IngredientID]; ok {
			merged[at].Quantity += d.Quantity
			continue
		}
		index[d.IngredientID] = len(merged)
		merged = append(merged, d)
	}
	return merged
}
