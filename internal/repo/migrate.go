package repo

import (
	"context"

	"gorm.io/gorm"

	"menu-catalog/internal/domain"
)

// Migrate 建表：category / dish / category_dish_map / users
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&domain.Category{},
		&domain.Dish{},
		&domain.CategoryDishMap{},
		&domain.User{},
	)
	return wrapErr("automigrate", err)
}
