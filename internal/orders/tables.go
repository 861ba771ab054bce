package orders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"restrodesk/internal/locks"
	applog "restrodesk/internal/log"
	"restrodesk/models"
)

// CreateTable registers a new dining table. Table numbers are unique; a
// duplicate is a ConflictError.
func (s *Service) CreateTable(ctx context.Context, number, capacity int, notes string) (*models.Table, error) {
	if number <= 0 {
		return nil, &models.ValidationError{Field: "number", Reason: "must be positive"}
	}
	if capacity <= 0 {
		return nil, &models.ValidationError{Field: "capacity", Reason: "must be positive"}
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Table{}).Where("number = ?", number).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check table number: %w", err)
	}
	if existing > 0 {
		return nil, &models.ConflictError{Resource: "table", Reason: fmt.Sprintf("table number %d already exists", number)}
	}

	table := &models.Table{
		Number:   number,
		Capacity: capacity,
		Status:   models.TableAvailable,
		Notes:    notes,
	}
	if err := s.db.WithContext(ctx).Create(table).Error; err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	applog.Info(ctx, "table created", "number", number, "capacity", capacity)
	return table, nil
}

// ReserveTable holds an available table for an expected party.
func (s *Service) ReserveTable(ctx context.Context, tableID uint, customerName, phone string, partySize int) (*models.Table, error) {
	release := s.locker.Acquire(locks.Key{Kind: locks.KindTable, ID: tableID})
	defer release()

	table, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if table.Status != models.TableAvailable {
		return nil, &models.InvalidTransitionError{Entity: "table", From: string(table.Status), To: string(models.TableReserved)}
	}

	updates := map[string]any{
		"status":        models.TableReserved,
		"customer_name": customerName,
		"phone":         phone,
		"party_size":    partySize,
	}
	if err := s.db.WithContext(ctx).Model(table).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("reserve table: %w", err)
	}
	table.Status = models.TableReserved
	return table, nil
}

// MarkTableCleaning moves an occupied table to cleaning once every
// order referencing it has reached a terminal status. The follow-up is
// caller-driven, never automatic, so staff control when the table is
// actually bussed.
func (s *Service) MarkTableCleaning(ctx context.Context, tableID uint) (*models.Table, error) {
	release := s.locker.Acquire(locks.Key{Kind: locks.KindTable, ID: tableID})
	defer release()

	table, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if table.Status != models.TableOccupied {
		return nil, &models.InvalidTransitionError{Entity: "table", From: string(table.Status), To: string(models.TableCleaning)}
	}

	active, err := s.ActiveOrderCount(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, &models.ConflictError{
			Resource: "table",
			Reason:   fmt.Sprintf("table %d still has %d active order(s)", table.Number, active),
		}
	}

	updates := map[string]any{
		"status":        models.TableCleaning,
		"customer_name": "",
		"phone":         "",
		"party_size":    0,
		"checked_in_at": nil,
	}
	if err := s.db.WithContext(ctx).Model(table).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("mark table cleaning: %w", err)
	}
	table.Status = models.TableCleaning

	applog.Info(ctx, "table moved to cleaning", "number", table.Number)
	return table, nil
}

// MarkTableAvailable frees a cleaned table for new seating. Only the
// explicit cleaning -> available transition releases a table, which
// prevents double-seating before it is physically reset.
func (s *Service) MarkTableAvailable(ctx context.Context, tableID uint) (*models.Table, error) {
	release := s.locker.Acquire(locks.Key{Kind: locks.KindTable, ID: tableID})
	defer release()

	table, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if table.Status != models.TableCleaning {
		return nil, &models.InvalidTransitionError{Entity: "table", From: string(table.Status), To: string(models.TableAvailable)}
	}

	if err := s.db.WithContext(ctx).Model(table).Update("status", models.TableAvailable).Error; err != nil {
		return nil, fmt.Errorf("mark table available: %w", err)
	}
	table.Status = models.TableAvailable

	applog.Info(ctx, "table available", "number", table.Number)
	return table, nil
}

func (s *Service) loadTable(ctx context.Context, tableID uint) (*models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &models.ValidationError{Field: "table_id", Reason: fmt.Sprintf("table %d does not exist", tableID)}
		}
		return nil, fmt.Errorf("load table: %w", err)
	}
	return &table, nil
}
