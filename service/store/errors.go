package store

import "errors"

var (
	// ErrEntityNotFound 实体不存在
	ErrEntityNotFound = errors.New("实体不存在")
	// ErrRecordNotFound 校验记录不存在
	ErrRecordNotFound = errors.New("校验记录不存在")
)
