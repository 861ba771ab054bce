package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restrodesk/internal/locks"
	"restrodesk/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(&models.Ingredient{}, &models.StockMovement{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedIngredient(t *testing.T, db *gorm.DB, name string, stock float64) models.Ingredient {
	t.Helper()
	ing := models.Ingredient{Name: name, Unit: "kg", StockQuantity: stock, CostPerUnit: 100}
	if err := db.Create(&ing).Error; err != nil {
		t.Fatalf("failed to seed ingredient: %v", err)
	}
	return ing
}

func stockOf(t *testing.T, db *gorm.DB, id uint) float64 {
	t.Helper()
	var ing models.Ingredient
	if err := db.First(&ing, id).Error; err != nil {
		t.Fatalf("failed to reload ingredient: %v", err)
	}
	return ing.StockQuantity
}

func TestApplyDeltasRejectsShortfallWithoutTouchingStock(t *testing.T) {
	db := openTestDB(t)
	l := New(db, locks.New())

	paneer := seedIngredient(t, db, "Paneer", 4.0)
	flour := seedIngredient(t, db, "Flour", 20.0)

	err := l.ApplyDeltas(context.Background(), models.MovementProduction, "batch-1", []Delta{
		{IngredientID: paneer.ID, Quantity: -5.0},
		{IngredientID: flour.ID, Quantity: -2.0},
	})

	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if len(stockErr.Shortages) != 1 {
		t.Fatalf("expected one shortage, got %d", len(stockErr.Shortages))
	}
	shortage := stockErr.Shortages[0]
	if shortage.IngredientID != paneer.ID || shortage.Shortfall != 1.0 {
		t.Fatalf("unexpected shortage: %+v", shortage)
	}

	if got := stockOf(t, db, paneer.ID); got != 4.0 {
		t.Fatalf("paneer stock changed to %g, want 4.0", got)
	}
	if got := stockOf(t, db, flour.ID); got != 20.0 {
		t.Fatalf("flour stock changed to %g, want 20.0", got)
	}

	var movements int64
	db.Model(&models.StockMovement{}).Count(&movements)
	if movements != 0 {
		t.Fatalf("expected no stock movements, found %d", movements)
	}
}

func TestApplyDeltasReportsEveryDeficientIngredient(t *testing.T) {
	db := openTestDB(t)
	l := New(db, locks.New())

	a := seedIngredient(t, db, "Butter", 1.0)
	b := seedIngredient(t, db, "Cream", 0.5)
	c := seedIngredient(t, db, "Salt", 10.0)

	err := l.ApplyDeltas(context.Background(), models.MovementProduction, "", []Delta{
		{IngredientID: a.ID, Quantity: -2.0},
		{IngredientID: b.ID, Quantity: -1.0},
		{IngredientID: c.ID, Quantity: -1.0},
	})

	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if len(stockErr.Shortages) != 2 {
		t.Fatalf("expected both deficient ingredients reported, got %d", len(stockErr.Shortages))
	}
}

func TestApplyDeltasCommitsAllAndRecordsMovements(t *testing.T) {
	db := openTestDB(t)
	l := New(db, locks.New())

	paneer := seedIngredient(t, db, "Paneer", 10.0)
	flour := seedIngredient(t, db, "Flour", 8.0)

	err := l.ApplyDeltas(context.Background(), models.MovementProduction, "batch-7", []Delta{
		{IngredientID: paneer.ID, Quantity: -2.5},
		{IngredientID: flour.ID, Quantity: -1.0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := stockOf(t, db, paneer.ID); got != 7.5 {
		t.Fatalf("paneer stock = %g, want 7.5", got)
	}
	if got := stockOf(t, db, flour.ID); got != 7.0 {
		t.Fatalf("flour stock = %g, want 7.0", got)
	}

	var movements []models.StockMovement
	if err := db.Order("ingredient_id asc").Find(&movements).Error; err != nil {
		t.Fatalf("failed to load movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}
	for _, m := range movements {
		if m.Reason != models.MovementProduction || m.Reference != "batch-7" {
			t.Fatalf("unexpected movement: %+v", m)
		}
	}
}

func TestApplyDeltasMergesDuplicateIngredients(t *testing.T) {
	db := openTestDB(t)
	l := New(db, locks.New())

	sugar := seedIngredient(t, db, "Sugar", 5.0)

	err := l.ApplyDeltas(context.Background(), models.MovementAdjustment, "", []Delta{
		{IngredientID: sugar.ID, Quantity: -2.0},
		{IngredientID: sugar.ID, Quantity: -1.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stockOf(t, db, sugar.ID); got != 1.5 {
		t.Fatalf("sugar stock = %g, want 1.5", got)
	}
}

func TestApplyDeltasUnknownIngredient(t *testing.T) {
	db := openTestDB(t)
	l := New(db, locks.New())

	err := l.ApplyDeltas(context.Background(), models.MovementAdjustment, "", []Delta{
		{IngredientID: 999, Quantity: -1.0},
	})

	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCheckAvailability(t *testing.T) {
	db := openTestDB(t)
	l := New(db, locks.New())

	paneer := seedIngredient(t, db, "Paneer", 4.0)
	flour := seedIngredient(t, db, "Flour", 20.0)

	results, err := l.CheckAvailability(context.Background(), []Requirement{
		{IngredientID: paneer.ID, Quantity: 5.0},
		{IngredientID: flour.ID, Quantity: 2.0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Available || results[0].Shortfall != 1.0 {
		t.Fatalf("unexpected paneer availability: %+v", results[0])
	}
	if !results[1].Available || results[1].Shortfall != 0 {
		t.Fatalf("unexpected flour availability: %+v", results[1])
	}
}

func TestCheckAvailabilityRejectsNonPositiveQuantity(t *testing.T) {
	db := openTestDB(t)
	l := New(db, locks.New())

	_, err := l.CheckAvailability(context.Background(), []Requirement{{IngredientID: 1, Quantity: 0}})

	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRestock(t *testing.T) {
	db := openTestDB(t)
	l := New(db, locks.New())

	rice := seedIngredient(t, db, "Rice", 3.0)

	if err := l.Restock(context.Background(), rice.ID, 7.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stockOf(t, db, rice.ID); got != 10.0 {
		t.Fatalf("rice stock = %g, want 10.0", got)
	}

	err := l.Restock(context.Background(), rice.ID, -1)
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for negative restock, got %v", err)
	}
}

func TestApplyDeltasTxRollsBackWithCallerTransaction(t *testing.T) {
	db := openTestDB(t)
	l := New(db, locks.New())

	paneer := seedIngredient(t, db, "Paneer", 10.0)

	deltas := []Delta{{IngredientID: paneer.ID, Quantity: -4.0}}
	release := l.locker.AcquireAll(LockKeys(deltas)...)
	failed := errors.New("caller write failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := l.ApplyDeltasTx(context.Background(), tx, models.MovementProduction, "batch-9", deltas); err != nil {
			return err
		}
		return failed
	})
	release()
	if !errors.Is(err, failed) {
		t.Fatalf("expected caller error, got %v", err)
	}

	if got := stockOf(t, db, paneer.ID); got != 10.0 {
		t.Fatalf("paneer stock changed to %g, want 10.0", got)
	}
	var movements int64
	db.Model(&models.StockMovement{}).Count(&movements)
	if movements != 0 {
		t.Fatalf("expected no stock movements, found %d", movements)
	}
}

// openSingleConnTestDB keeps sqlite on one connection so concurrent
// transactions queue at the pool instead of tripping sqlite's
// shared-cache table locks.
func openSingleConnTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := openTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestApplyDeltasConcurrentDisjointWriters(t *testing.T) {
	db := openSingleConnTestDB(t)
	l := New(db, locks.New())

	paneer := seedIngredient(t, db, "Paneer", 100.0)
	flour := seedIngredient(t, db, "Flour", 100.0)

	const writers = 8
	const perWriter = 5

	var wg sync.WaitGroup
	errCh := make(chan error, writers*perWriter)
	for i := 0; i < writers; i++ {
		target := paneer.ID
		if i%2 == 1 {
			target = flour.ID
		}
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				errCh <- l.ApplyDeltas(context.Background(), models.MovementProduction, "", []Delta{
					{IngredientID: id, Quantity: -1.0},
				})
			}
		}(target)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	want := 100.0 - float64(writers/2*perWriter)
	if got := stockOf(t, db, paneer.ID); got != want {
		t.Fatalf("paneer stock = %g, want %g", got, want)
	}
	if got := stockOf(t, db, flour.ID); got != want {
		t.Fatalf("flour stock = %g, want %g", got, want)
	}
	var movements int64
	db.Model(&models.StockMovement{}).Count(&movements)
	if movements != int64(writers*perWriter) {
		t.Fatalf("expected %d stock movements, found %d", writers*perWriter, movements)
	}
}

func TestApplyDeltasConcurrentOverlappingWriters(t *testing.T) {
	db := openSingleConnTestDB(t)
	l := New(db, locks.New())

	paneer := seedIngredient(t, db, "Paneer", 10.0)

	const writers = 20

	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- l.ApplyDeltas(context.Background(), models.MovementProduction, "", []Delta{
				{IngredientID: paneer.ID, Quantity: -1.0},
			})
		}()
	}
	wg.Wait()
	close(errCh)

	var applied, rejected int
	for err := range errCh {
		if err == nil {
			applied++
			continue
		}
		var stockErr *models.InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		rejected++
	}
	if applied != 10 || rejected != 10 {
		t.Fatalf("applied/rejected = %d/%d, want 10/10", applied, rejected)
	}

	if got := stockOf(t, db, paneer.ID); got != 0.0 {
		t.Fatalf("paneer stock = %g, want 0", got)
	}
	var movements int64
	db.Model(&models.StockMovement{}).Count(&movements)
	if movements != 10 {
		t.Fatalf("expected 10 stock movements, found %d", movements)
	}
}

func TestApplyDeltasRandomizedAtomicity(t *testing.T) {
	db := openTestDB(t)
	l := New(db, locks.New())

	rng := rand.New(rand.NewSource(7))

	ids := make([]uint, 0, 5)
	for i := 0; i < 5; i++ {
		ing := seedIngredient(t, db, fmt.Sprintf("Ingredient %d", i), float64(rng.Intn(40))*0.25)
		ids = append(ids, ing.ID)
	}

	for round := 0; round < 200; round++ {
		picked := make([]uint, 0, len(ids))
		for _, id := range ids {
			if rng.Intn(2) == 0 {
				picked = append(picked, id)
			}
		}
		if len(picked) == 0 {
			picked = append(picked, ids[rng.Intn(len(ids))])
		}

		before := make(map[uint]float64, len(picked))
		deltas := make([]Delta, 0, len(picked))
		for _, id := range picked {
			before[id] = stockOf(t, db, id)
			qty := float64(rng.Intn(20)+1) * 0.25
			deltas = append(deltas, Delta{IngredientID: id, Quantity: -qty})
		}

		wantShort := 0
		for _, d := range deltas {
			if -d.Quantity > before[d.IngredientID] {
				wantShort++
			}
		}

		err := l.ApplyDeltas(context.Background(), models.MovementProduction, "", deltas)
		if wantShort == 0 {
			if err != nil {
				t.Fatalf("round %d: unexpected error: %v", round, err)
			}
			for _, d := range deltas {
				got := stockOf(t, db, d.IngredientID)
				want := before[d.IngredientID] + d.Quantity
				if got != want {
					t.Fatalf("round %d: ingredient %d stock = %g, want %g", round, d.IngredientID, got, want)
				}
			}
		} else {
			var stockErr *models.InsufficientStockError
			if !errors.As(err, &stockErr) {
				t.Fatalf("round %d: expected InsufficientStockError, got %v", round, err)
			}
			if len(stockErr.Shortages) != wantShort {
				t.Fatalf("round %d: reported %d shortages, want %d", round, len(stockErr.Shortages), wantShort)
			}
			for _, d := range deltas {
				if got := stockOf(t, db, d.IngredientID); got != before[d.IngredientID] {
					t.Fatalf("round %d: ingredient %d stock = %g, want untouched %g", round, d.IngredientID, got, before[d.IngredientID])
				}
			}
		}

		if rng.Intn(4) == 0 {
			id := ids[rng.Intn(len(ids))]
			if err := l.Restock(context.Background(), id, float64(rng.Intn(30)+1)*0.25); err != nil {
				t.Fatalf("round %d: restock failed: %v", round, err)
			}
		}
	}
}
