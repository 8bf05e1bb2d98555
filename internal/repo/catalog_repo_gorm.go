package repo

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"menu-catalog/internal/domain"
	"menu-catalog/pkg/utils"
)

// CreatedAtLayout dish.created_at 的存储格式（毫秒精度）
const CreatedAtLayout = "2006-01-02 15:04:05.000"

var (
	byIndex     = clause.OrderByColumn{Column: clause.Column{Name: "index"}}
	byIndexDesc = clause.OrderByColumn{Column: clause.Column{Name: "index"}, Desc: true}
	byDishIndex = clause.OrderByColumn{Column: clause.Column{Table: "dish", Name: "index"}}
)

type CatalogRepo struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
	loc *time.Location
}

type Option func(*CatalogRepo)

func WithLogger(l *zap.Logger) Option { return func(r *CatalogRepo) { r.log = l } }

func WithClock(now func() time.Time) Option { return func(r *CatalogRepo) { r.now = now } }

// WithUTCOffset created_at 使用的固定时区（小时）
func WithUTCOffset(hours int) Option {
	return func(r *CatalogRepo) { r.loc = time.FixedZone("", hours*3600) }
}

func NewCatalogRepo(db *gorm.DB, opts ...Option) *CatalogRepo {
	r := &CatalogRepo{
		db:  db,
		log: zap.NewNop(),
		now: time.Now,
		loc: time.FixedZone("", 8*3600),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *CatalogRepo) withDB(db *gorm.DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) Transaction(ctx context.Context, fn func(domain.CatalogRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.withDB(tx))
	})
}

// ---------- category ----------

// InsertCategory index = 当前最大 index + 1，表为空时为 0
func (r *CatalogRepo) InsertCategory(ctx context.Context, name string) (string, error) {
	db := r.db.WithContext(ctx)

	var last domain.Category
	res := db.Order(byIndexDesc).Limit(1).Find(&last)
	if res.Error != nil {
		return "", wrapErr("query max category index", res.Error)
	}
	index := 0
	if res.RowsAffected > 0 {
		index = last.Index + 1
	}

	c := domain.Category{ID: utils.NewID(), Index: index, Name: name}
	if err := db.Create(&c).Error; err != nil {
		return "", wrapErr("insert category", err)
	}
	return c.ID, nil
}

func (r *CatalogRepo) DeleteCategoryByID(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Delete(&domain.Category{}, "id = ?", id).Error
	return wrapErr("delete category", err)
}

func (r *CatalogRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := r.db.WithContext(ctx).Order(byIndex).Order("id").Find(&out).Error; err != nil {
		return nil, wrapErr("list categories", err)
	}
	return nonNil(out), nil
}

// ---------- dish ----------

// InsertDish index = 当前行数 + 1（删除后可能与已有 index 重复）
func (r *CatalogRepo) InsertDish(ctx context.Context, name string, price float64, picture string) (string, error) {
	db := r.db.WithContext(ctx)

	var n int64
	if err := db.Model(&domain.Dish{}).Count(&n).Error; err != nil {
		return "", wrapErr("count dishes", err)
	}

	d := domain.Dish{
		ID:        utils.NewID(),
		Index:     int(n) + 1,
		Name:      name,
		Price:     price,
		Picture:   picture,
		Status:    domain.DishNormal,
		CreatedAt: r.now().In(r.loc).Format(CreatedAtLayout),
	}
	if err := db.Create(&d).Error; err != nil {
		return "", wrapErr("insert dish", err)
	}
	return d.ID, nil
}

func (r *CatalogRepo) DeleteDishByID(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Delete(&domain.Dish{}, "id = ?", id).Error
	return wrapErr("delete dish", err)
}

func (r *CatalogRepo) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	var out []domain.Dish
	if err := r.db.WithContext(ctx).Order(byIndex).Order("id").Find(&out).Error; err != nil {
		return nil, wrapErr("list dishes", err)
	}
	return nonNil(out), nil
}

// ---------- mapping ----------

// InsertMapping 两端必须存在，否则返回 ErrNotFound；重复关联返回 ErrConflict
func (r *CatalogRepo) InsertMapping(ctx context.Context, categoryID, dishID string) error {
	db := r.db.WithContext(ctx)
	if err := r.mustExist(db, &domain.Category{}, categoryID, "category"); err != nil {
		return err
	}
	if err := r.mustExist(db, &domain.Dish{}, dishID, "dish"); err != nil {
		return err
	}
	m := domain.CategoryDishMap{CategoryID: categoryID, DishID: dishID}
	return wrapErr("insert mapping", db.Create(&m).Error)
}

func (r *CatalogRepo) DeleteMappingsByCategory(ctx context.Context, categoryID string) error {
	err := r.db.WithContext(ctx).Delete(&domain.CategoryDishMap{}, "category_id = ?", categoryID).Error
	return wrapErr("delete mappings by category", err)
}

func (r *CatalogRepo) DeleteMappingsByDish(ctx context.Context, dishID string) error {
	err := r.db.WithContext(ctx).Delete(&domain.CategoryDishMap{}, "dish_id = ?", dishID).Error
	return wrapErr("delete mappings by dish", err)
}

func (r *CatalogRepo) mustExist(db *gorm.DB, model any, id, what string) error {
	var n int64
	if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return wrapErr("lookup "+what, err)
	}
	if n == 0 {
		return wrapErr("lookup "+what+" "+id, gorm.ErrRecordNotFound)
	}
	return nil
}

// ---------- linked queries ----------

func (r *CatalogRepo) DishesForCategory(ctx context.Context, categoryID string) ([]domain.Dish, error) {
	db := r.db.WithContext(ctx)
	if err := r.mustExist(db, &domain.Category{}, categoryID, "category"); err != nil {
		return nil, err
	}
	var out []domain.Dish
	err := db.Model(&domain.Dish{}).
		Select("dish.*").
		Joins("JOIN category_dish_map ON category_dish_map.dish_id = dish.id").
		Where("category_dish_map.category_id = ?", categoryID).
		Order(byDishIndex).
		Find(&out).Error
	if err != nil {
		return nil, wrapErr("query dishes of category", err)
	}
	return nonNil(out), nil
}

func (r *CatalogRepo) CategoriesForDish(ctx context.Context, dishID string) ([]domain.Category, error) {
	db := r.db.WithContext(ctx)
	if err := r.mustExist(db, &domain.Dish{}, dishID, "dish"); err != nil {
		return nil, err
	}
	var out []domain.Category
	err := db.Model(&domain.Category{}).
		Select("category.*").
		Joins("JOIN category_dish_map ON category_dish_map.category_id = category.id").
		Where("category_dish_map.dish_id = ?", dishID).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "category", Name: "index"}}).
		Find(&out).Error
	if err != nil {
		return nil, wrapErr("query categories of dish", err)
	}
	return nonNil(out), nil
}

// CategoriesWithDishes 按插入顺序（ULID 递增）返回每个分类及其菜品；
// 单个分类查询失败只记日志并跳过
func (r *CatalogRepo) CategoriesWithDishes(ctx context.Context) ([]domain.CategoryWithDishes, error) {
	var cats []domain.Category
	if err := r.db.WithContext(ctx).Order("id").Find(&cats).Error; err != nil {
		return nil, wrapErr("list categories", err)
	}
	out := make([]domain.CategoryWithDishes, 0, len(cats))
	for _, c := range cats {
		dishes, err := r.DishesForCategory(ctx, c.ID)
		if err != nil {
			r.log.Error("query menu: resolve dishes failed",
				zap.String("category_id", c.ID), zap.Error(err))
			continue
		}
		out = append(out, domain.CategoryWithDishes{Category: c, Dishes: dishes})
	}
	return out, nil
}
