package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误
// 1. Code是错误种类(客户端据此判断,不依赖HTTP状态码)
// 2. Message是面向用户的提示
// 3. Err是内部原因,只进日志,不返回给客户端
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装基础设施错误(数据库、Redis、网络),统一归为内部错误
func Wrap(err error, message string) *AppError {
	return WrapCode(err, ErrCodeInternal, message)
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return WrapCode(err, ErrCodeInternal, fmt.Sprintf(format, args...))
}

// WrapCode 以指定错误码包装底层错误
func WrapCode(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// - 4xxxx: 客户端可处理的错误(参数、业务规则)
// - 5xxxx: 服务端错误(存储不可用、事务失败)

const (
	// 系统级错误码(50000-50099)
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误
	ErrCodeTransaction   = 50003 // 事务失败(已整体回滚)
	ErrCodeLockTimeout   = 50004 // 等待行锁超时
	ErrCodeMQError       = 50005 // 消息队列错误

	// 资源错误(40400-40499)
	ErrCodeNotFound     = 40400 // 资源不存在(通用)
	ErrCodeBookNotFound = 40402 // 图书不存在

	// 业务规则错误(40000-40099)
	ErrCodeBusinessError     = 40000 // 业务错误(通用)
	ErrCodeDuplicateEntry    = 40009 // 重复记录
	ErrCodeNoCopiesAvailable = 40010 // 没有可借副本
	ErrCodeNotCheckedOut     = 40011 // 图书未被借出
	ErrCodeNoOpenRecord      = 40012 // 找不到未归还的借阅记录

	// 参数错误(40900-40999)
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
)

var (
	ErrInternal      = New(ErrCodeInternal, "internal error")
	ErrDatabaseError = New(ErrCodeDatabaseError, "database error")
	ErrRedisError    = New(ErrCodeRedisError, "cache error")

	ErrInvalidParams = New(ErrCodeInvalidParams, "invalid parameters")
	ErrBindError     = New(ErrCodeBindError, "malformed request")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError(不是AppError则包装成Internal错误)
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "internal error")
}

// CodeOf 返回错误链上最外层AppError的错误码
// nil返回0,非AppError返回ErrCodeInternal
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	return GetAppError(err).Code
}

// IsClientError 4xxxx错误码属于调用方可处理的错误
func IsClientError(err error) bool {
	code := CodeOf(err)
	return code >= 40000 && code < 50000
}
