package utils

import "github.com/oklog/ulid/v2"

// NewID 生成 ULID（按时间有序，可字典序排序）
func NewID() string { return ulid.Make().String() }
