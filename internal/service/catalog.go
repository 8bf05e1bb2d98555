package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"menu-catalog/internal/domain"
)

const (
	maxNameLen    = 64
	maxPictureLen = 255
)

// MenuCache 菜单聚合结果的缓存；nil 表示不缓存
type MenuCache interface {
	GetMenu(ctx context.Context, load func(context.Context) ([]domain.CategoryWithDishes, error)) ([]domain.CategoryWithDishes, error)
	Invalidate(ctx context.Context) error
}

// CatalogService 编排分类/菜品的多步写操作和菜单聚合读。
//
// 默认不包事务：先写实体再写关联、先删关联再删实体，中途失败时已完成的步骤
// 不回滚，返回第一个错误。WithAtomic(true) 时每个多步操作在同一事务内执行。
type CatalogService struct {
	repo   domain.CatalogRepository
	log    *zap.Logger
	cache  MenuCache
	atomic bool
}

type CatalogOption func(*CatalogService)

func WithCatalogLogger(l *zap.Logger) CatalogOption {
	return func(s *CatalogService) { s.log = l }
}

func WithMenuCache(c MenuCache) CatalogOption {
	return func(s *CatalogService) { s.cache = c }
}

func WithAtomic(on bool) CatalogOption {
	return func(s *CatalogService) { s.atomic = on }
}

func NewCatalogService(repo domain.CatalogRepository, opts ...CatalogOption) *CatalogService {
	s := &CatalogService{repo: repo, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *CatalogService) run(ctx context.Context, fn func(domain.CatalogRepository) error) error {
	if s.atomic {
		return s.repo.Transaction(ctx, fn)
	}
	return fn(s.repo)
}

// invalidate 写操作无论成败都清缓存（非事务模式下失败也可能留下部分写入）
func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("invalidate menu cache failed", zap.Error(err))
	}
}

// CreateCategory 非事务模式下，关联写入失败时仍返回已创建的分类 id
func (s *CatalogService) CreateCategory(ctx context.Context, name string, dishIDs []string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if err := checkIDs("dish_ids", dishIDs); err != nil {
		return "", err
	}
	defer s.invalidate(ctx)

	var id string
	err = s.run(ctx, func(r domain.CatalogRepository) error {
		var e error
		if id, e = r.InsertCategory(ctx, name); e != nil {
			return e
		}
		for _, dishID := range dishIDs {
			if e := r.InsertMapping(ctx, id, dishID); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		if s.atomic {
			id = ""
		}
		s.log.Warn("create category failed", zap.String("name", name), zap.String("id", id), zap.Error(err))
		return id, err
	}
	s.log.Info("category created", zap.String("id", id), zap.String("name", name), zap.Int("dishes", len(dishIDs)))
	return id, nil
}

// CreateDish 与 CreateCategory 对称：先写菜品，再按顺序写关联
func (s *CatalogService) CreateDish(ctx context.Context, name string, price float64, picture string, categoryIDs []string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return "", fmt.Errorf("%w: price must be a non-negative number", domain.ErrValidation)
	}
	if len(picture) > maxPictureLen {
		return "", fmt.Errorf("%w: picture must be at most %d bytes", domain.ErrValidation, maxPictureLen)
	}
	if err := checkIDs("category_ids", categoryIDs); err != nil {
		return "", err
	}
	defer s.invalidate(ctx)

	var id string
	err = s.run(ctx, func(r domain.CatalogRepository) error {
		var e error
		if id, e = r.InsertDish(ctx, name, price, picture); e != nil {
			return e
		}
		for _, categoryID := range categoryIDs {
			if e := r.InsertMapping(ctx, categoryID, id); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		if s.atomic {
			id = ""
		}
		s.log.Warn("create dish failed", zap.String("name", name), zap.String("id", id), zap.Error(err))
		return id, err
	}
	s.log.Info("dish created", zap.String("id", id), zap.String("name", name), zap.Float64("price", price))
	return id, nil
}

// DeleteCategory 顺序固定：先删关联行，再删分类，反过来会留下孤儿关联
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	defer s.invalidate(ctx)

	err := s.run(ctx, func(r domain.CatalogRepository) error {
		if err := r.DeleteMappingsByCategory(ctx, id); err != nil {
			return err
		}
		return r.DeleteCategoryByID(ctx, id)
	})
	if err != nil {
		s.log.Warn("delete category failed", zap.String("id", id), zap.Error(err))
		return err
	}
	s.log.Info("category deleted", zap.String("id", id))
	return nil
}

// DeleteDish 先删关联行，再删菜品
func (s *CatalogService) DeleteDish(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	defer s.invalidate(ctx)

	err := s.run(ctx, func(r domain.CatalogRepository) error {
		if err := r.DeleteMappingsByDish(ctx, id); err != nil {
			return err
		}
		return r.DeleteDishByID(ctx, id)
	})
	if err != nil {
		s.log.Warn("delete dish failed", zap.String("id", id), zap.Error(err))
		return err
	}
	s.log.Info("dish deleted", zap.String("id", id))
	return nil
}

func (s *CatalogService) GetMenu(ctx context.Context) ([]domain.CategoryWithDishes, error) {
	if s.cache == nil {
		return s.repo.CategoriesWithDishes(ctx)
	}
	return s.cache.GetMenu(ctx, s.repo.CategoriesWithDishes)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *CatalogService) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	return s.repo.ListDishes(ctx)
}

func (s *CatalogService) DishesForCategory(ctx context.Context, categoryID string) ([]domain.Dish, error) {
	return s.repo.DishesForCategory(ctx, categoryID)
}

func (s *CatalogService) CategoriesForDish(ctx context.Context, dishID string) ([]domain.Category, error) {
	return s.repo.CategoriesForDish(ctx, dishID)
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLen {
		return "", fmt.Errorf("%w: name must be 1-%d characters", domain.ErrValidation, maxNameLen)
	}
	return name, nil
}

// checkIDs 拒绝空 id 和重复 id，避免写到一半才因冲突失败
func checkIDs(field string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: %s contains an empty id", domain.ErrValidation, field)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s contains duplicate id %s", domain.ErrValidation, field, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
