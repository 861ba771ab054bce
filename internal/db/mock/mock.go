package mock

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restrodesk/internal/db"
	applog "restrodesk/internal/log"
	"restrodesk/models"
)

// New returns an in-memory sqlite database seeded with a representative
// restaurant dataset: staff accounts, a stocked pantry, a short menu
// and a small floor plan.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	database, err := gorm.Open(sqlite.Open("file:restrodesk-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(database); err != nil {
		return nil, err
	}

	if err := seed(ctx, database); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

func seed(ctx context.Context, database *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte("backoffice"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []*models.User{
		{Name: "Devika Rana", Email: "devika@restrodesk.app", PasswordHash: string(password), Role: models.RoleAdmin},
		{Name: "Kiran Thapa", Email: "kiran@restrodesk.app", PasswordHash: string(password), Role: models.RoleStaff},
	}
	for _, user := range users {
		if err := database.WithContext(ctx).Create(user).Error; err != nil {
			return err
		}
	}

	paneer := models.Ingredient{Name: "Paneer", Unit: "kg", StockQuantity: 12.0, CostPerUnit: 420, ReorderLevel: 3}
	tomato := models.Ingredient{Name: "Tomato", Unit: "kg", StockQuantity: 25.0, CostPerUnit: 80, ReorderLevel: 5}
	cream := models.Ingredient{Name: "Cream", Unit: "l", StockQuantity: 8.0, CostPerUnit: 260, ReorderLevel: 2}
	basmati := models.Ingredient{Name: "Basmati Rice", Unit: "kg", StockQuantity: 40.0, CostPerUnit: 150, ReorderLevel: 10}

	ingredients := []*models.Ingredient{&paneer, &tomato, &cream, &basmati}
	for _, ingredient := range ingredients {
		if err := database.WithContext(ctx).Create(ingredient).Error; err != nil {
			return err
		}
	}

	goods := []models.FinishedGood{
		{
			Name:         "Paneer Butter Masala",
			Category:     "Mains",
			SellingPrice: 380,
			Taxable:      true,
			Recipe: []models.RecipeItem{
				{IngredientID: paneer.ID, Quantity: 0.25, Unit: "kg"},
				{IngredientID: tomato.ID, Quantity: 0.3, Unit: "kg"},
				{IngredientID: cream.ID, Quantity: 0.1, Unit: "l"},
			},
		},
		{
			Name:         "Jeera Rice",
			Category:     "Rice",
			SellingPrice: 180,
			Taxable:      true,
			Recipe: []models.RecipeItem{
				{IngredientID: basmati.ID, Quantity: 0.2, Unit: "kg"},
			},
		},
	}
	for i := range goods {
		if err := database.WithContext(ctx).Create(&goods[i]).Error; err != nil {
			return err
		}
	}

	tables := []models.Table{
		{Number: 1, Capacity: 2, Status: models.TableAvailable},
		{Number: 2, Capacity: 4, Status: models.TableAvailable},
		{Number: 3, Capacity: 4, Status: models.TableReserved, CustomerName: "Walk-in hold", PartySize: 3},
		{Number: 4, Capacity: 8, Status: models.TableAvailable, Notes: "family booth"},
	}
	for i := range tables {
		if err := database.WithContext(ctx).Create(&tables[i]).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
