package loan

import (
	"context"
)

// Repository 借阅记录仓储接口
type Repository interface {
	// Create 新增记录,回填ID
	Create(ctx context.Context, r *Record) error

	// Update 整行写回(归还时使用)
	Update(ctx context.Context, r *Record) error

	// FindLatestOpen 某本书最近借出且未归还的记录
	// 排序:借出日期、借出时刻、ID均降序;没有时返回ErrNoOpenRecord
	FindLatestOpen(ctx context.Context, bookID uint) (*Record, error)

	// ListOpenByBooks 多本书的未归还记录,按书ID升序、同书最新在前
	ListOpenByBooks(ctx context.Context, bookIDs []uint) ([]*Record, error)

	// CountOpenByBook 每本书的未归还记录数(库存核对用)
	CountOpenByBook(ctx context.Context) (map[uint]int, error)
}
