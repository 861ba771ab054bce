package models

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed or out-of-range input. It is raised
// before any mutation is attempted, so a validation failure never leaves
// partial state behind.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Shortage describes one ingredient that cannot cover a requested deduction.
type Shortage struct {
	IngredientID uint    `json:"ingredient_id"`
	Name         string  `json:"name"`
	Requested    float64 `json:"requested"`
	Available    float64 `json:"available"`
	Shortfall    float64 `json:"shortfall"`
	Unit         string  `json:"unit"`
}

// InsufficientStockError carries every ingredient that would go negative
// under a requested deduction, so a caller can resupply in one pass.
// No partial deduction is ever applied alongside this error.
type InsufficientStockError struct {
	Shortages []Shortage `json:"shortages"`
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s short by %g %s", s.Name, s.Shortfall, s.Unit))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// InvalidTransitionError reports a status change not permitted from the
// entity's current state. The entity is left unchanged.
type InvalidTransitionError struct {
	Entity string `json:"entity"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: transition %s -> %s is not allowed", e.Entity, e.From, e.To)
}

// ConflictError reports an operation that cannot proceed because of the
// current state of another resource, such as seating an occupied table
// or reusing a table number.
type ConflictError struct {
	Resource string `json:"resource"`
	Reason   string `json:"reason"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Resource, e.Reason)
}
