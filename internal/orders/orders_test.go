package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restrodesk/internal/billing"
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
	if err := db.AutoMigrate(
		&models.Bill{},
		&models.BillItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Table{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	engine, err := billing.New(db)
	if err != nil {
		t.Fatalf("failed to build billing engine: %v", err)
	}
	svc, err := NewService(db, engine, locks.New(), nil)
	if err != nil {
		t.Fatalf("failed to build order service: %v", err)
	}
	return svc
}

func seedTable(t *testing.T, db *gorm.DB, number int, status models.TableStatus) models.Table {
	t.Helper()
	table := models.Table{Number: number, Capacity: 4, Status: status}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("failed to seed table: %v", err)
	}
	return table
}

func cart() []billing.LineItem {
	return []billing.LineItem{
		{Name: "Paneer Tikka", Quantity: 2, UnitPrice: 350, Taxable: true},
	}
}

func TestTransitionClosure(t *testing.T) {
	t.Parallel()

	statuses := []models.OrderStatus{
		models.OrderPending,
		models.OrderConfirmed,
		models.OrderPreparing,
		models.OrderReady,
		models.OrderServed,
		models.OrderCancelled,
	}

	allowed := map[string]bool{
		"PENDING->CONFIRMED":   true,
		"PENDING->CANCELLED":   true,
		"CONFIRMED->PREPARING": true,
		"CONFIRMED->CANCELLED": true,
		"PREPARING->READY":     true,
		"PREPARING->CANCELLED": true,
		"READY->SERVED":        true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			edge := fmt.Sprintf("%s->%s", from, to)
			if got := CanTransition(from, to); got != allowed[edge] {
				t.Errorf("CanTransition(%s) = %t, want %t", edge, got, allowed[edge])
			}
		}
	}
}

func TestUpdateStatusRejectsBackwardTransition(t *testing.T) {
	db := openTestDB(t)
	svc := newService(t, db)

	order, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:        cart(),
		Type:         models.OrderTakeaway,
		CustomerName: "Ravi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, to := range []models.OrderStatus{models.OrderConfirmed, models.OrderPreparing, models.OrderReady} {
		if _, err := svc.UpdateStatus(context.Background(), order.ID, to); err != nil {
			t.Fatalf("unexpected error advancing to %s: %v", to, err)
		}
	}

	_, err = svc.UpdateStatus(context.Background(), order.ID, models.OrderPending)
	var transitionErr *models.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transitionErr.From != "READY" || transitionErr.To != "PENDING" {
		t.Fatalf("unexpected transition error: %+v", transitionErr)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("failed to reload order: %v", err)
	}
	if reloaded.Status != models.OrderReady {
		t.Fatalf("order status = %s, want READY", reloaded.Status)
	}
}

func TestUpdateStatusTerminalStatesAreFinal(t *testing.T) {
	db := openTestDB(t)
	svc := newService(t, db)

	order, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:        cart(),
		Type:         models.OrderTakeaway,
		CustomerName: "Meera",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), order.ID, models.OrderCancelled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.UpdateStatus(context.Background(), order.ID, models.OrderConfirmed)
	var transitionErr *models.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError out of CANCELLED, got %v", err)
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	db := openTestDB(t)
	svc := newService(t, db)

	_, err := svc.UpdateStatus(context.Background(), 1, models.OrderStatus("BURNED"))
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestPlaceDineInSeatsTableAtomically(t *testing.T) {
	db := openTestDB(t)
	svc := newService(t, db)

	table := seedTable(t, db, 5, models.TableAvailable)

	order, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:        cart(),
		Type:         models.OrderDineIn,
		TableID:      &table.ID,
		PartySize:    3,
		CustomerName: "Anil",
		Phone:        "9800000001",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.BillNumber == nil || *order.BillNumber == 0 {
		t.Fatal("expected order to reference an issued bill")
	}
	if order.Status != models.OrderPending {
		t.Fatalf("order status = %s, want PENDING", order.Status)
	}

	var seated models.Table
	if err := db.First(&seated, table.ID).Error; err != nil {
		t.Fatalf("failed to reload table: %v", err)
	}
	if seated.Status != models.TableOccupied {
		t.Fatalf("table status = %s, want occupied", seated.Status)
	}
	if seated.CustomerName != "Anil" || seated.PartySize != 3 || seated.CheckedInAt == nil {
		t.Fatalf("occupant not recorded: %+v", seated)
	}
}

func TestPlaceDineInAgainstOccupiedTable(t *testing.T) {
	db := openTestDB(t)
	svc := newService(t, db)

	table := seedTable(t, db, 2, models.TableOccupied)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:        cart(),
		Type:         models.OrderDineIn,
		TableID:      &table.ID,
		PartySize:    2,
		CustomerName: "Sita",
	})

	var conflictErr *models.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	var orderCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	if orderCount != 0 {
		t.Fatalf("no order may be created on conflict, found %d", orderCount)
	}

	var reloaded models.Table
	if err := db.First(&reloaded, table.ID).Error; err != nil {
		t.Fatalf("failed to reload table: %v", err)
	}
	if reloaded.Status != models.TableOccupied {
		t.Fatalf("table status = %s, want occupied (unchanged)", reloaded.Status)
	}
}

func TestPlaceDineInAcceptsReservedTable(t *testing.T) {
	db := openTestDB(t)
	svc := newService(t, db)

	table := seedTable(t, db, 9, models.TableReserved)

	if _, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:        cart(),
		Type:         models.OrderDineIn,
		TableID:      &table.ID,
		PartySize:    4,
		CustomerName: "Gita",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPlaceDineInRejectsOversizedParty(t *testing.T) {
	db := openTestDB(t)
	svc := newService(t, db)

	table := seedTable(t, db, 3, models.TableAvailable)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:        cart(),
		Type:         models.OrderDineIn,
		TableID:      &table.ID,
		PartySize:    9,
		CustomerName: "Hari",
	})

	var conflictErr *models.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	db := openTestDB(t)
	svc := newService(t, db)

	tableID := uint(1)
	cases := []struct {
		name string
		req  PlaceOrderRequest
	}{
		{"unknown type", PlaceOrderRequest{Items: cart(), Type: "DRIVE_THROUGH", CustomerName: "x"}},
		{"missing customer", PlaceOrderRequest{Items: cart(), Type: models.OrderTakeaway}},
		{"dine-in without table", PlaceOrderRequest{Items: cart(), Type: models.OrderDineIn, CustomerName: "x", PartySize: 2}},
		{"dine-in without party size", PlaceOrderRequest{Items: cart(), Type: models.OrderDineIn, CustomerName: "x", TableID: &tableID}},
		{"delivery without address", PlaceOrderRequest{Items: cart(), Type: models.OrderDelivery, CustomerName: "x"}},
		{"empty cart", PlaceOrderRequest{Type: models.OrderTakeaway, CustomerName: "x"}},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(context.Background(), tt.req)
			var validationErr *models.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestOrderNumbersIncrease(t *testing.T) {
	db := openTestDB(t)
	svc := newService(t, db)

	first, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{Items: cart(), Type: models.OrderTakeaway, CustomerName: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{Items: cart(), Type: models.OrderTakeaway, CustomerName: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.OrderNo == second.OrderNo {
		t.Fatalf("order numbers must be unique, both %q", first.OrderNo)
	}
	if !strings.HasPrefix(first.OrderNo, "ORD-") {
		t.Fatalf("unexpected order number format: %q", first.OrderNo)
	}
}
