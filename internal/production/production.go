package production

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restrodesk/internal/events"
	"restrodesk/internal/ledger"
	"restrodesk/internal/locks"
	applog "restrodesk/internal/log"
	"restrodesk/models"
)

// Engine converts raw-material stock into finished-good stock. Every
// run funnels through the ledger's atomic deduction, so a shortfall on
// any ingredient leaves all stock untouched.
type Engine struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	locker *locks.EntityLocker
	events *events.Publisher
}

// New builds a production Engine. The events publisher may be nil.
func New(db *gorm.DB, l *ledger.Ledger, locker *locks.EntityLocker, pub *events.Publisher) *Engine {
	return &Engine{db: db, ledger: l, locker: locker, events: pub}
}

// Produce runs the recipe of the given finished good quantity times.
// The ledger deduction of the full ingredient vector, the finished-good
// stock increment, the total-cost recomputation from current ingredient
// costs and the immutable ProductionRecord all commit in a single
// transaction. On any failure the finished good and every ingredient
// are left unchanged.
func (e *Engine) Produce(ctx context.Context, goodID uint, quantity int) (*models.ProductionRecord, error) {
	if quantity <= 0 {
		return nil, &models.ValidationError{Field: "quantity", Reason: "must be a positive integer"}
	}

	release := e.locker.Acquire(locks.Key{Kind: locks.KindFinishedGood, ID: goodID})
	defer release()

	var good models.FinishedGood
	err := e.db.WithContext(ctx).Preload("Recipe").Preload("Recipe.Ingredient").First(&good, goodID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &models.ValidationError{Field: "finished_good_id", Reason: fmt.Sprintf("finished good %d does not exist", goodID)}
		}
		return nil, fmt.Errorf("load finished good: %w", err)
	}
	if len(good.Recipe) == 0 {
		return nil, &models.ValidationError{Field: "recipe", Reason: "finished good has no recipe"}
	}

	batchCode := uuid.NewString()

	deltas := make([]ledger.Delta, 0, len(good.Recipe))
	usages := make([]models.ProductionUsage, 0, len(good.Recipe))
	var unitCost models.Money
	for _, line := range good.Recipe {
		used := line.Quantity * float64(quantity)
		deltas = append(deltas, ledger.Delta{IngredientID: line.IngredientID, Quantity: -used})

		name := ""
		var lineCost models.Money
		if line.Ingredient != nil {
			name = line.Ingredient.Name
			lineCost = models.MoneyFromFloat(float64(line.Ingredient.CostPerUnit) * line.Quantity)
		}
		unitCost = unitCost.Add(lineCost)
		usages = append(usages, models.ProductionUsage{
			IngredientID:   line.IngredientID,
			IngredientName: name,
			QuantityUsed:   used,
			Unit:           line.Unit,
		})
	}

	record := &models.ProductionRecord{
		BatchCode:      batchCode,
		FinishedGoodID: good.ID,
		Quantity:       quantity,
		UnitCost:       unitCost,
		Usages:         usages,
	}

	releaseStock := e.locker.AcquireAll(ledger.LockKeys(deltas)...)
	defer releaseStock()

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.ledger.ApplyDeltasTx(ctx, tx, models.MovementProduction, batchCode, deltas); err != nil {
			return err
		}
		result := tx.Model(&models.FinishedGood{}).
			Where("id = ?", good.ID).
			Updates(map[string]any{
				"stock_quantity": gorm.Expr("stock_quantity + ?", quantity),
				"total_cost":     unitCost,
			})
		if result.Error != nil {
			return result.Error
		}
		return tx.Create(record).Error
	})
	if err != nil {
		var stockErr *models.InsufficientStockError
		if errors.As(err, &stockErr) {
			return nil, err
		}
		return nil, fmt.Errorf("record production run: %w", err)
	}

	applog.Info(ctx, "production run completed",
		"finished_good", good.Name,
		"quantity", quantity,
		"batch", batchCode,
	)
	e.events.ProductionCompleted(ctx, batchCode, good.Name, quantity)

	return record, nil
}

// HasHistory reports whether the finished good has ever been produced.
// A good with history keeps its recipe frozen.
func (e *Engine) HasHistory(ctx context.Context, goodID uint) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).Model(&models.ProductionRecord{}).
		Where("finished_good_id = ?", goodID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count production records: %w", err)
	}
	return count > 0, nil
}
