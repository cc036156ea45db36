package loan

import (
	apperrors "github.com/xiebiao/circulation/pkg/errors"
)

// 借阅领域错误定义
var (
	ErrMissingFields = apperrors.New(apperrors.ErrCodeInvalidParams, "missing required fields")
	ErrInvalidEmail  = apperrors.New(apperrors.ErrCodeInvalidParams, "invalid email")
	ErrMissingISBN   = apperrors.New(apperrors.ErrCodeInvalidParams, "missing isbn")

	// ErrNoOpenRecord 数量显示有借出,却找不到未归还记录(数据不一致信号)
	ErrNoOpenRecord = apperrors.New(apperrors.ErrCodeNoOpenRecord, "no check-out record found for this book")

	// ErrAlreadyReturned 记录已归还,不能重复关闭
	ErrAlreadyReturned = apperrors.New(apperrors.ErrCodeBusinessError, "loan already returned")
)
