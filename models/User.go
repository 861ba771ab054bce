package models

import (
	"strings"

	"gorm.io/gorm"
)

// Role names the coarse permission tier attached to an account. The
// core trusts role-gating decisions made at the session boundary and
// only re-checks roles intrinsic to an operation.
const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// DefaultRole is assigned to self-registered accounts.
const DefaultRole = RoleCustomer

// ValidRole reports whether role is one of the known tiers.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

// NormalizeRole lower-cases and trims role, falling back to DefaultRole
// for unknown values.
func NormalizeRole(role string) string {
	cleaned := strings.ToLower(strings.TrimSpace(role))
	if !ValidRole(cleaned) {
		return DefaultRole
	}
	return cleaned
}

// User represents an account that can authenticate with the back office.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	Role         string `gorm:"size:16;not null;default:customer"`
}

// StaffLike reports whether the account may perform back-of-house
// operations such as creating requisitions.
func (u *User) StaffLike() bool {
	return u.Role == RoleAdmin || u.Role == RoleStaff
}
