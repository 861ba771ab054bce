package models

import "testing"

func TestValidRole(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value string
		want  bool
	}{
		{"admin", RoleAdmin, true},
		{"staff", RoleStaff, true},
		{"customer", RoleCustomer, true},
		{"unknown", "manager", false},
		{"empty", "", false},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidRole(tt.value); got != tt.want {
				t.Fatalf("ValidRole(%q) = %t, want %t", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	t.Parallel()

	if got := NormalizeRole("  Staff "); got != RoleStaff {
		t.Fatalf("NormalizeRole returned %q, want %q", got, RoleStaff)
	}

	if got := NormalizeRole("invalid"); got != DefaultRole {
		t.Fatalf("NormalizeRole returned %q, want %q", got, DefaultRole)
	}
}

func TestStaffLike(t *testing.T) {
	t.Parallel()

	admin := User{Role: RoleAdmin}
	staff := User{Role: RoleStaff}
	customer := User{Role: RoleCustomer}

	if !admin.StaffLike() || !staff.StaffLike() {
		t.Fatal("expected admin and staff accounts to be staff-like")
	}
	if customer.StaffLike() {
		t.Fatal("expected customer accounts not to be staff-like")
	}
}
