package mock

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"restrodesk/models"
)

func TestNewSeedsExpectedRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := New(ctx)
	if err != nil {
		t.Fatalf("mock database initialization failed: %v", err)
	}

	var ingredients []models.Ingredient
	if err := db.WithContext(ctx).Find(&ingredients).Error; err != nil {
		t.Fatalf("query ingredients: %v", err)
	}
	if len(ingredients) == 0 {
		t.Fatal("expected seeded ingredients")
	}

	var goods []models.FinishedGood
	if err := db.WithContext(ctx).Preload("Recipe").Find(&goods).Error; err != nil {
		t.Fatalf("query finished goods: %v", err)
	}
	if len(goods) == 0 {
		t.Fatal("expected seeded finished goods")
	}
	for _, good := range goods {
		if len(good.Recipe) == 0 {
			t.Fatalf("finished good %q has no recipe", good.Name)
		}
	}

	var tables []models.Table
	if err := db.WithContext(ctx).Find(&tables).Error; err != nil {
		t.Fatalf("query tables: %v", err)
	}
	if len(tables) == 0 {
		t.Fatal("expected seeded tables")
	}

	var user models.User
	if err := db.WithContext(ctx).Where("role = ?", models.RoleAdmin).First(&user).Error; err != nil {
		t.Fatalf("query admin user: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("backoffice")); err != nil {
		t.Fatalf("unexpected password hash: %v", err)
	}
}
