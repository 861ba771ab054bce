package models

import (
	"gorm.io/gorm"
)

// Ingredient is a raw material tracked by the inventory ledger. Stock is
// mutated only through relative deltas so concurrent writers never lose
// updates to an absolute overwrite.
type Ingredient struct {
	gorm.Model
	Name          string  `gorm:"uniqueIndex;not null" json:"name"`
	Unit          string  `gorm:"size:16;not null" json:"unit"`
	StockQuantity float64 `gorm:"not null;default:0" json:"stock_quantity"`
	CostPerUnit   Money   `gorm:"not null;default:0" json:"cost_per_unit"`
	ReorderLevel  float64 `json:"reorder_level"`
	Notes         string  `gorm:"type:text" json:"notes"`
}

// StockMovement is an append-only audit row recorded for every ledger
// delta. Movements are never updated or deleted.
type StockMovement struct {
	gorm.Model
	IngredientID uint    `gorm:"index;not null" json:"ingredient_id"`
	Delta        float64 `gorm:"not null" json:"delta"`
	Reason       string  `gorm:"size:32;not null" json:"reason"`
	Reference    string  `gorm:"size:64;index" json:"reference"`
}

// Stock movement reasons.
const (
	MovementProduction  = "production"
	MovementRequisition = "requisition"
	MovementRestock     = "restock"
	MovementAdjustment  = "adjustment"
)
