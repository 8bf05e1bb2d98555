package domain

import "context"

type DishStatus string

const (
	DishNormal   DishStatus = "normal"
	DishDelisted DishStatus = "delist"
)

type Category struct {
	ID    string `gorm:"primaryKey;size:26" json:"id"`
	Index int    `gorm:"column:index;not null" json:"index"`
	Name  string `gorm:"uniqueIndex;size:64;not null" json:"name"`
}

func (Category) TableName() string { return "category" }

type Dish struct {
	ID        string     `gorm:"primaryKey;size:26" json:"id"`
	Index     int        `gorm:"column:index;not null" json:"index"`
	Name      string     `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Price     float64    `gorm:"not null" json:"price"`
	Picture   string     `gorm:"size:255" json:"picture"`
	Status    DishStatus `gorm:"size:16;not null;default:normal" json:"status"`
	CreatedAt string     `gorm:"size:32;not null" json:"created_at"`
}

func (Dish) TableName() string { return "dish" }

// CategoryDishMap 纯关联表，联合主键
type CategoryDishMap struct {
	CategoryID string `gorm:"primaryKey;size:26"`
	DishID     string `gorm:"primaryKey;size:26;index"`
}

func (CategoryDishMap) TableName() string { return "category_dish_map" }

type CategoryWithDishes struct {
	Category Category `json:"category"`
	Dishes   []Dish   `json:"dish"`
}

// CatalogRepository 分类/菜品/关联表/用户的持久化。
// 关联行不会级联删除，删除顺序由调用方保证。
type CatalogRepository interface {
	InsertCategory(ctx context.Context, name string) (string, error)
	DeleteCategoryByID(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]Category, error)

	InsertDish(ctx context.Context, name string, price float64, picture string) (string, error)
	DeleteDishByID(ctx context.Context, id string) error
	ListDishes(ctx context.Context) ([]Dish, error)

	InsertMapping(ctx context.Context, categoryID, dishID string) error
	DeleteMappingsByCategory(ctx context.Context, categoryID string) error
	DeleteMappingsByDish(ctx context.Context, dishID string) error

	DishesForCategory(ctx context.Context, categoryID string) ([]Dish, error)
	CategoriesForDish(ctx context.Context, dishID string) ([]Category, error)
	CategoriesWithDishes(ctx context.Context) ([]CategoryWithDishes, error)

	// Transaction 在同一事务内执行 fn，fn 返回错误则回滚
	Transaction(ctx context.Context, fn func(CatalogRepository) error) error
}

type UserRepository interface {
	InsertUser(ctx context.Context, username, passwordHash string) (string, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUserByID(ctx context.Context, id string) error
}
