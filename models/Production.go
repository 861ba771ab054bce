package models

import (
	"gorm.io/gorm"
)

// ProductionRecord is an immutable audit entry for one production run.
// It captures exactly what was deducted from the ledger, at the
// ingredient costs in effect at the time of the run.
type ProductionRecord struct {
	gorm.Model
	BatchCode      string            `gorm:"size:36;uniqueIndex;not null" json:"batch_code"`
	FinishedGoodID uint              `gorm:"index;not null" json:"finished_good_id"`
	Quantity       int               `gorm:"not null" json:"quantity"`
	UnitCost       Money             `gorm:"not null" json:"unit_cost"`
	Usages         []ProductionUsage `gorm:"foreignKey:ProductionRecordID" json:"usages"`
}

// ProductionUsage is one deducted ingredient line within a production
// record. The ingredient name is denormalized so the audit trail stays
// readable even if the ingredient is later renamed or removed.
type ProductionUsage struct {
	gorm.Model
	ProductionRecordID uint    `gorm:"index;not null" json:"production_record_id"`
	IngredientID       uint    `gorm:"not null" json:"ingredient_id"`
	IngredientName     string  `gorm:"not null" json:"ingredient_name"`
	QuantityUsed       float64 `gorm:"not null" json:"quantity_used"`
	Unit               string  `gorm:"size:16;not null" json:"unit"`
}
