package models

import (
	"time"

	"gorm.io/gorm"
)

// TableStatus is the single source of truth for whether a table may
// accept a new dine-in order.
type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
	TableCleaning  TableStatus = "cleaning"
)

// ValidTableStatus reports whether s is one of the known table states.
func ValidTableStatus(s TableStatus) bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved, TableCleaning:
		return true
	}
	return false
}

// Table is a physical dining table. Occupant fields are populated while
// the table is occupied and cleared when it returns to available.
type Table struct {
	gorm.Model
	Number       int         `gorm:"uniqueIndex;not null" json:"number"`
	Capacity     int         `gorm:"not null" json:"capacity"`
	Status       TableStatus `gorm:"size:16;not null;default:available" json:"status"`
	CustomerName string      `json:"customer_name,omitempty"`
	Phone        string      `gorm:"size:32" json:"phone,omitempty"`
	PartySize    int         `json:"party_size,omitempty"`
	CheckedInAt  *time.Time  `json:"checked_in_at,omitempty"`
	Notes        string      `gorm:"type:text" json:"notes,omitempty"`
}
