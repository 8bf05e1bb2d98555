package service

import (
	"context"
	"time"

	"menu-catalog/internal/core/cache"
	"menu-catalog/internal/domain"
)

const menuCacheKey = "menu:v1"

// RedisMenuCache 用 redis 缓存菜单聚合结果
type RedisMenuCache struct {
	c   *cache.Cache
	ttl time.Duration
}

func NewRedisMenuCache(c *cache.Cache, ttl time.Duration) *RedisMenuCache {
	return &RedisMenuCache{c: c, ttl: ttl}
}

func (m *RedisMenuCache) GetMenu(ctx context.Context, load func(context.Context) ([]domain.CategoryWithDishes, error)) ([]domain.CategoryWithDishes, error) {
	return cache.GetOrLoadJSON(m.c, ctx, menuCacheKey, m.ttl, load)
}

func (m *RedisMenuCache) Invalidate(ctx context.Context) error {
	return m.c.Invalidate(ctx, menuCacheKey)
}
