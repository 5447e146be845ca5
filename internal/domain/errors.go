package domain

import "errors"

// 业务错误分类（service 层返回，http 层映射状态码）
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation error")
	ErrPermissionDenied = errors.New("permission denied")
)
