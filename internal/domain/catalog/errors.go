package catalog

import (
	apperrors "github.com/xiebiao/circulation/pkg/errors"
)

// 馆藏领域错误定义
var (
	// ErrBookNotFound 按ISBN或ID找不到馆藏记录
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "book not found in inventory")

	// ErrNoCopiesAvailable 在架数量为0
	ErrNoCopiesAvailable = apperrors.New(apperrors.ErrCodeNoCopiesAvailable, "no copies available to check out")

	// ErrNotCheckedOut 在架数量已等于馆藏数量,没有可归还的副本
	ErrNotCheckedOut = apperrors.New(apperrors.ErrCodeNotCheckedOut, "this book is not checked out")

	ErrInvalidBook     = apperrors.New(apperrors.ErrCodeInvalidParams, "isbn and title are required")
	ErrInvalidISBN     = apperrors.New(apperrors.ErrCodeInvalidParams, "isbn must be at most 13 characters")
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "quantity must not be negative")
	ErrInvalidDate     = apperrors.New(apperrors.ErrCodeInvalidParams, "dates must use the YYYY-MM-DD format")

	// ErrInvalidSearch 检索条件的字段、运算符或取值不合法
	ErrInvalidSearch = apperrors.New(apperrors.ErrCodeInvalidParams, "invalid search clause")
)
