package circulation

import (
	"context"
	"time"
)

// Transactor 原子执行单元
// fn返回error时整体回滚,返回nil时提交
// fn内的仓储调用必须使用传入的ctx(事务通过ctx传递)
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Config 借还用例配置
type Config struct {
	// LockTimeout 等待行锁(以及整个事务)的最长时间,0表示不限制
	LockTimeout time.Duration

	// Now 时钟,测试时注入固定时间
	Now func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// withLockTimeout 为事务设置超时
func (c Config) withLockTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.LockTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.LockTimeout)
}
