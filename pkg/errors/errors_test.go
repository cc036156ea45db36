package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	t.Run("Error包含错误码和内部原因", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, "query failed")

		assert.Equal(t, "[50000] query failed: connection refused", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("哨兵错误经过多层包装仍可识别", func(t *testing.T) {
		sentinel := New(ErrCodeNoCopiesAvailable, "no copies available to check out")
		wrapped := fmt.Errorf("checkout: %w", sentinel)

		assert.ErrorIs(t, wrapped, sentinel)
		assert.Equal(t, ErrCodeNoCopiesAvailable, CodeOf(wrapped))
		assert.True(t, IsClientError(wrapped))
	})

	t.Run("CodeOf取最外层AppError", func(t *testing.T) {
		inner := New(ErrCodeDatabaseError, "database error")
		outer := WrapCode(inner, ErrCodeTransaction, "transaction failed")

		assert.Equal(t, ErrCodeTransaction, CodeOf(outer))
		assert.False(t, IsClientError(outer))
	})

	t.Run("非AppError归为内部错误", func(t *testing.T) {
		assert.Equal(t, 0, CodeOf(nil))
		assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, IsAppError(errors.New("boom")))

		appErr := GetAppError(errors.New("boom"))
		require.NotNil(t, appErr)
		assert.Equal(t, "internal error", appErr.Message)
	})
}
