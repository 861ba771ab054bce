package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"restrodesk/models"
)

func TestCreateTableRejectsDuplicateNumber(t *testing.T) {
	withHandlerFixtures(t)

	req := jsonRequest(t, http.MethodPost, "/api/tables", map[string]any{
		"number":   7,
		"capacity": 4,
	})
	w := httptest.NewRecorder()
	CreateTable(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	req = jsonRequest(t, http.MethodPost, "/api/tables", map[string]any{
		"number":   7,
		"capacity": 2,
	})
	w = httptest.NewRecorder()
	CreateTable(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for duplicate number, got %d", w.Code)
	}
}

func TestTableCleaningLifecycleOverHTTP(t *testing.T) {
	db := withHandlerFixtures(t)

	table := models.Table{Number: 3, Capacity: 4, Status: models.TableOccupied, CustomerName: "Asha"}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("failed to seed table: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/tables/%d/cleaning", table.ID), nil)
	req = withURLParam(req, "id", fmt.Sprint(table.ID))
	w := httptest.NewRecorder()
	MarkTableCleaning(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.Table
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != models.TableCleaning || resp.CustomerName != "" {
		t.Fatalf("expected cleaning with occupant cleared, got %+v", resp)
	}

	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/tables/%d/available", table.ID), nil)
	req = withURLParam(req, "id", fmt.Sprint(table.ID))
	w = httptest.NewRecorder()
	MarkTableAvailable(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != models.TableAvailable {
		t.Fatalf("expected available, got %q", resp.Status)
	}
}

func TestMarkTableAvailableRequiresCleaningOverHTTP(t *testing.T) {
	db := withHandlerFixtures(t)

	table := models.Table{Number: 5, Capacity: 2, Status: models.TableOccupied}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("failed to seed table: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/tables/%d/available", table.ID), nil)
	req = withURLParam(req, "id", fmt.Sprint(table.ID))
	w := httptest.NewRecorder()
	MarkTableAvailable(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}
}

func TestReserveTableOverHTTP(t *testing.T) {
	db := withHandlerFixtures(t)

	table := models.Table{Number: 9, Capacity: 6, Status: models.TableAvailable}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("failed to seed table: %v", err)
	}

	req := jsonRequest(t, http.MethodPost, fmt.Sprintf("/api/tables/%d/reserve", table.ID), map[string]any{
		"customer_name": "Bimala",
		"phone":         "9800000000",
		"party_size":    4,
	})
	req = withURLParam(req, "id", fmt.Sprint(table.ID))
	w := httptest.NewRecorder()
	ReserveTable(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.Table
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != models.TableReserved || resp.CustomerName != "Bimala" {
		t.Fatalf("unexpected table: %+v", resp)
	}
}
