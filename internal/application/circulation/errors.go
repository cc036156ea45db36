package circulation

import (
	"context"
	"errors"

	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
	apperrors "github.com/xiebiao/circulation/pkg/errors"
)

// ErrLockTimeout 在配置的时间内没有拿到行锁(或事务未完成)
var ErrLockTimeout = apperrors.New(apperrors.ErrCodeLockTimeout, "timed out waiting for the book record lock")

// domainErrors 业务规则错误,原样返回给调用方
var domainErrors = []error{
	catalog.ErrBookNotFound,
	catalog.ErrNoCopiesAvailable,
	catalog.ErrNotCheckedOut,
	loan.ErrNoOpenRecord,
	loan.ErrAlreadyReturned,
}

// classify 把事务体返回的错误归类
// 1. 业务规则错误原样返回
// 2. 本次操作自己的超时 → ErrLockTimeout
// 3. 其余(存储不可用、提交失败等) → TransactionError,此时事务已回滚
func classify(parent, txCtx context.Context, err error) error {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	if parent.Err() == nil && errors.Is(txCtx.Err(), context.DeadlineExceeded) {
		return ErrLockTimeout
	}
	return apperrors.WrapCode(err, apperrors.ErrCodeTransaction, "transaction failed")
}
