package catalog

import (
	"context"
)

// Repository 馆藏仓储接口
// domain层定义,infrastructure层实现(MySQL/SQLite走GORM,测试和单机模式走内存实现)
type Repository interface {
	// Create 新书入库,回填ID
	Create(ctx context.Context, book *Book) error

	// FindByID 根据ID查找
	FindByID(ctx context.Context, id uint) (*Book, error)

	// FindByISBN 根据ISBN查找,重复ISBN取ID最小的一条
	FindByISBN(ctx context.Context, isbn string) (*Book, error)

	// LockByISBN 悲观锁读取(SELECT ... FOR UPDATE)
	// 必须在事务内调用,锁持有到事务提交或回滚
	// 同一记录上的借还操作因此串行,不同记录互不阻塞
	LockByISBN(ctx context.Context, isbn string) (*Book, error)

	// Update 整行写回
	Update(ctx context.Context, book *Book) error

	// Search 按谓词树检索,结果按ID升序
	Search(ctx context.Context, pred Predicate) ([]*Book, error)
}
