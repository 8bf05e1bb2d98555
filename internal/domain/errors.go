package domain

import "errors"

// 错误分类；存储层包装时同时保留底层错误：
//
//	fmt.Errorf("%w: insert dish: %w", ErrStorage, err)
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	// ErrAuth 凭据错误与 token 无效/过期不做区分
	ErrAuth    = errors.New("authentication failed")
	ErrStorage = errors.New("storage failure")
)
