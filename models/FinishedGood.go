package models

import (
	"gorm.io/gorm"
)

// FinishedGood is a menu item produced from raw ingredients. TotalCost
// is recomputed from current ingredient costs on every production run.
type FinishedGood struct {
	gorm.Model
	Name          string       `gorm:"uniqueIndex;not null" json:"name"`
	Category      string       `gorm:"size:64" json:"category"`
	SellingPrice  Money        `gorm:"not null;default:0" json:"selling_price"`
	StockQuantity int          `gorm:"not null;default:0" json:"stock_quantity"`
	TotalCost     Money        `gorm:"not null;default:0" json:"total_cost"`
	Taxable       bool         `gorm:"not null;default:true" json:"taxable"`
	Recipe        []RecipeItem `gorm:"foreignKey:FinishedGoodID" json:"recipe"`
}

// RecipeItem is one line of a finished good's recipe: the quantity of a
// single ingredient required to produce one unit. The recipe is frozen
// once the good has production history.
type RecipeItem struct {
	gorm.Model
	FinishedGoodID uint        `gorm:"index;not null" json:"finished_good_id"`
	IngredientID   uint        `gorm:"not null" json:"ingredient_id"`
	Quantity       float64     `gorm:"not null" json:"quantity"`
	Unit           string      `gorm:"size:16;not null" json:"unit"`
	Ingredient     *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}
