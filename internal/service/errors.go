package service

import (
	"errors"

	"shopguard-backend/internal/repository"
)

// 请求级错误分类（handler 用 errors.Is 映射 HTTP 状态码）
// 这些错误对请求是终结性的，不重试；存储类错误一律包装原始错误向上传
var (
	// ErrInvalidPayload 接入请求缺少必填字段
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidStatus 生命周期更新的目标状态不合法
	ErrInvalidStatus = errors.New("invalid alert status")

	// ErrNotFound 目标记录不存在（透传仓库层哨兵）
	ErrNotFound = repository.ErrNotFound
)

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
