package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"menu-catalog/internal/core/cache"
	"menu-catalog/internal/core/database"
	"menu-catalog/internal/domain"
	"menu-catalog/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	return openTestDB(t, ":memory:")
}

// newFileTestDB 文件库，多连接，用于并发场景
func newFileTestDB(t *testing.T) *gorm.DB {
	return openTestDB(t, filepath.Join(t.TempDir(), "catalog.db"))
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: dsn, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(context.Background(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// mockCatalogRepo 只用于校验调用顺序和错误透传
type mockCatalogRepo struct{ mock.Mock }

func (m *mockCatalogRepo) InsertCategory(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *mockCatalogRepo) DeleteCategoryByID(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCatalogRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCatalogRepo) InsertDish(ctx context.Context, name string, price float64, picture string) (string, error) {
	args := m.Called(ctx, name, price, picture)
	return args.String(0), args.Error(1)
}

func (m *mockCatalogRepo) DeleteDishByID(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCatalogRepo) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Dish), args.Error(1)
}

func (m *mockCatalogRepo) InsertMapping(ctx context.Context, categoryID, dishID string) error {
	return m.Called(ctx, categoryID, dishID).Error(0)
}

func (m *mockCatalogRepo) DeleteMappingsByCategory(ctx context.Context, categoryID string) error {
	return m.Called(ctx, categoryID).Error(0)
}

func (m *mockCatalogRepo) DeleteMappingsByDish(ctx context.Context, dishID string) error {
	return m.Called(ctx, dishID).Error(0)
}

func (m *mockCatalogRepo) DishesForCategory(ctx context.Context, categoryID string) ([]domain.Dish, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).([]domain.Dish), args.Error(1)
}

func (m *mockCatalogRepo) CategoriesForDish(ctx context.Context, dishID string) ([]domain.Category, error) {
	args := m.Called(ctx, dishID)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCatalogRepo) CategoriesWithDishes(ctx context.Context) ([]domain.CategoryWithDishes, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.CategoryWithDishes), args.Error(1)
}

func (m *mockCatalogRepo) Transaction(ctx context.Context, fn func(domain.CatalogRepository) error) error {
	return m.Called(ctx, fn).Error(0)
}

func TestCatalog_EndToEnd(t *testing.T) {
	ctx := context.Background()
	s := NewCatalogService(repo.NewCatalogRepo(newTestDB(t)))

	mains, err := s.CreateCategory(ctx, "Mains", nil)
	require.NoError(t, err)
	burger, err := s.CreateDish(ctx, "Burger", 9.5, "", []string{mains})
	require.NoError(t, err)

	menu, err := s.GetMenu(ctx)
	require.NoError(t, err)
	require.Len(t, menu, 1)
	assert.Equal(t, "Mains", menu[0].Category.Name)
	require.Len(t, menu[0].Dishes, 1)
	assert.Equal(t, burger, menu[0].Dishes[0].ID)
	assert.Equal(t, 9.5, menu[0].Dishes[0].Price)
	assert.Equal(t, domain.DishNormal, menu[0].Dishes[0].Status)

	cats, err := s.CategoriesForDish(ctx, burger)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, mains, cats[0].ID)

	// 删菜品后分类仍在，关联清空
	require.NoError(t, s.DeleteDish(ctx, burger))
	dishes, err := s.DishesForCategory(ctx, mains)
	require.NoError(t, err)
	assert.Empty(t, dishes)

	// 先建菜品再在建分类时引用
	fries, err := s.CreateDish(ctx, "Fries", 3, "fries.png", nil)
	require.NoError(t, err)
	sides, err := s.CreateCategory(ctx, "Sides", []string{fries})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCategory(ctx, sides))
	cats, err = s.CategoriesForDish(ctx, fries)
	require.NoError(t, err)
	assert.Empty(t, cats)

	all, err := s.ListDishes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "fries.png", all[0].Picture)

	// 删除不存在的 id 是 no-op
	assert.NoError(t, s.DeleteCategory(ctx, "01J0000000000000000000000X"))
}

func TestCatalog_Validation(t *testing.T) {
	ctx := context.Background()
	s := NewCatalogService(new(mockCatalogRepo))

	cases := []struct {
		name string
		call func() error
	}{
		{"empty category name", func() error { _, err := s.CreateCategory(ctx, "  ", nil); return err }},
		{"long category name", func() error {
			_, err := s.CreateCategory(ctx, string(make([]rune, 65)), nil)
			return err
		}},
		{"empty dish id", func() error { _, err := s.CreateCategory(ctx, "Mains", []string{""}); return err }},
		{"duplicate dish id", func() error { _, err := s.CreateCategory(ctx, "Mains", []string{"a", "a"}); return err }},
		{"negative price", func() error { _, err := s.CreateDish(ctx, "Burger", -1, "", nil); return err }},
		{"long picture", func() error {
			_, err := s.CreateDish(ctx, "Burger", 1, string(make([]byte, 256)), nil)
			return err
		}},
		{"empty delete id", func() error { return s.DeleteDish(ctx, "") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.call(), domain.ErrValidation)
		})
	}
}

func TestCatalog_DeleteCategoryOrderAndPropagation(t *testing.T) {
	ctx := context.Background()
	m := new(mockCatalogRepo)
	boom := errors.New("boom")

	mock.InOrder(
		m.On("DeleteMappingsByCategory", ctx, "c1").Return(nil).Once(),
		m.On("DeleteCategoryByID", ctx, "c1").Return(boom).Once(),
	)

	err := NewCatalogService(m).DeleteCategory(ctx, "c1")
	assert.ErrorIs(t, err, boom)
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Transaction", mock.Anything, mock.Anything)
}

func TestCatalog_DeleteDishStopsOnFirstError(t *testing.T) {
	ctx := context.Background()
	m := new(mockCatalogRepo)
	m.On("DeleteMappingsByDish", ctx, "d1").Return(domain.ErrStorage).Once()

	err := NewCatalogService(m).DeleteDish(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrStorage)
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "DeleteDishByID", mock.Anything, mock.Anything)
}

func TestCatalog_CreateDishMappingsInOrder(t *testing.T) {
	ctx := context.Background()
	m := new(mockCatalogRepo)

	mock.InOrder(
		m.On("InsertDish", ctx, "Burger", 9.5, "").Return("d1", nil).Once(),
		m.On("InsertMapping", ctx, "c1", "d1").Return(nil).Once(),
		m.On("InsertMapping", ctx, "c2", "d1").Return(domain.ErrNotFound).Once(),
	)

	id, err := NewCatalogService(m).CreateDish(ctx, "Burger", 9.5, "", []string{"c1", "c2", "c3"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "d1", id)
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "InsertMapping", ctx, "c3", "d1")
}

func TestCatalog_NonAtomicLeavesPartialWrite(t *testing.T) {
	ctx := context.Background()
	s := NewCatalogService(repo.NewCatalogRepo(newTestDB(t)))

	id, err := s.CreateCategory(ctx, "Mains", []string{"missing-dish"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotEmpty(t, id)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, id, cats[0].ID)
}

func TestCatalog_AtomicRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewCatalogService(repo.NewCatalogRepo(newTestDB(t)), WithAtomic(true))

	id, err := s.CreateCategory(ctx, "Mains", []string{"missing-dish"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, id)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)

	dishID, err := s.CreateDish(ctx, "Burger", 9.5, "", nil)
	require.NoError(t, err)
	_, err = s.CreateDish(ctx, "Fries", 3, "", []string{"missing-category"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	dishes, err := s.ListDishes(ctx)
	require.NoError(t, err)
	require.Len(t, dishes, 1)
	assert.Equal(t, dishID, dishes[0].ID)
}

func TestCatalog_MenuCacheInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })

	s := NewCatalogService(
		repo.NewCatalogRepo(newTestDB(t)),
		WithMenuCache(NewRedisMenuCache(c, time.Minute)),
	)

	_, err := s.CreateCategory(ctx, "Mains", nil)
	require.NoError(t, err)
	menu, err := s.GetMenu(ctx)
	require.NoError(t, err)
	require.Len(t, menu, 1)
	assert.True(t, mr.Exists(menuCacheKey))

	_, err = s.CreateCategory(ctx, "Sides", nil)
	require.NoError(t, err)
	assert.False(t, mr.Exists(menuCacheKey))

	menu, err = s.GetMenu(ctx)
	require.NoError(t, err)
	require.Len(t, menu, 2)
	assert.Equal(t, "Mains", menu[0].Category.Name)
	assert.Equal(t, "Sides", menu[1].Category.Name)
	assert.NotNil(t, menu[1].Dishes)
}

func TestCatalog_DeleteCategoryCleansMappings(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewCatalogService(repo.NewCatalogRepo(db))

	d1, err := s.CreateDish(ctx, "Burger", 9.5, "", nil)
	require.NoError(t, err)
	d2, err := s.CreateDish(ctx, "Fries", 3, "", nil)
	require.NoError(t, err)
	c, err := s.CreateCategory(ctx, "Mains", []string{d1, d2})
	require.NoError(t, err)
	other, err := s.CreateCategory(ctx, "Sides", []string{d2})
	require.NoError(t, err)

	dishes, err := s.DishesForCategory(ctx, c)
	require.NoError(t, err)
	require.Len(t, dishes, 2)

	require.NoError(t, s.DeleteCategory(ctx, c))

	_, err = s.DishesForCategory(ctx, c)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&domain.CategoryDishMap{}).Where("category_id = ?", c).Count(&n).Error)
	assert.Zero(t, n)

	// 其他分类的关联不受影响
	require.NoError(t, db.Model(&domain.CategoryDishMap{}).Where("category_id = ?", other).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	all, err := s.ListDishes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCatalog_AtomicConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	s := NewCatalogService(repo.NewCatalogRepo(newFileTestDB(t)), WithAtomic(true))

	const n = 40
	var wg sync.WaitGroup
	errs := make([]error, n+2)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CreateCategory(ctx, fmt.Sprintf("Category %02d", i), nil)
		}(i)
	}
	// 同名的两个请求只有一个成功
	for i := n; i < n+2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CreateCategory(ctx, "Specials", nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.NoError(t, errs[i], "category %d", i)
	}
	conflicts := 0
	for _, err := range errs[n:] {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, n+1)
	seen := make(map[int]bool, len(cats))
	for _, c := range cats {
		assert.False(t, seen[c.Index], "duplicate index %d", c.Index)
		seen[c.Index] = true
	}
}

// racingRepo 在菜单读完之后、结果回写缓存之前插入一次写操作
type racingRepo struct {
	*repo.CatalogRepo
	afterRead func()
}

func (r *racingRepo) CategoriesWithDishes(ctx context.Context) ([]domain.CategoryWithDishes, error) {
	out, err := r.CatalogRepo.CategoriesWithDishes(ctx)
	if f := r.afterRead; f != nil {
		r.afterRead = nil
		f()
	}
	return out, err
}

func TestCatalog_MenuCacheWriteDuringLoad(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })

	rr := &racingRepo{CatalogRepo: repo.NewCatalogRepo(newTestDB(t))}
	s := NewCatalogService(rr, WithMenuCache(NewRedisMenuCache(c, time.Minute)))

	_, err := s.CreateCategory(ctx, "Mains", nil)
	require.NoError(t, err)
	rr.afterRead = func() {
		_, err := s.CreateCategory(ctx, "Sides", nil)
		require.NoError(t, err)
	}

	menu, err := s.GetMenu(ctx)
	require.NoError(t, err)
	assert.Len(t, menu, 1)
	assert.False(t, mr.Exists(menuCacheKey))

	menu, err = s.GetMenu(ctx)
	require.NoError(t, err)
	require.Len(t, menu, 2)
	assert.Equal(t, "Sides", menu[1].Category.Name)
	assert.True(t, mr.Exists(menuCacheKey))
}
