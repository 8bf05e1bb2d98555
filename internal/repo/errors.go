package repo

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"menu-catalog/internal/domain"
)

// wrapErr 把 gorm/驱动错误映射到 domain 错误分类，保留原始错误链
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, op)
	case isDupKey(err):
		return fmt.Errorf("%w: %s: %w", domain.ErrConflict, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
	}
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 驱动未开启错误翻译时按消息兜底（sqlite / mysql / postgres）
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique violation")
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
