package models

import (
	"gorm.io/gorm"
)

// RequisitionStatus tracks the approval workflow of an internal stock
// request.
type RequisitionStatus string

const (
	RequisitionPending  RequisitionStatus = "pending"
	RequisitionApproved RequisitionStatus = "approved"
	RequisitionRejected RequisitionStatus = "rejected"
)

// Requisition is a staff-initiated request to draw raw materials from
// the ledger outside of a production run. No stock is touched until the
// requisition is approved.
type Requisition struct {
	gorm.Model
	RequisitionNo string            `gorm:"size:48;uniqueIndex;not null" json:"requisition_no"`
	StaffID       uint              `gorm:"index;not null" json:"staff_id"`
	Staff         *User             `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	Status        RequisitionStatus `gorm:"size:16;not null;default:pending" json:"status"`
	Notes         string            `gorm:"type:text" json:"notes"`
	Items         []RequisitionItem `gorm:"foreignKey:RequisitionID" json:"items"`
}

// RequisitionItem is one requested ingredient line.
type RequisitionItem struct {
	gorm.Model
	RequisitionID uint        `gorm:"index;not null" json:"requisition_id"`
	IngredientID  uint        `gorm:"not null" json:"ingredient_id"`
	Quantity      float64     `gorm:"not null" json:"quantity"`
	Ingredient    *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}
