// Package persistence 按配置选择存储实现
package persistence

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
	"github.com/xiebiao/circulation/internal/infrastructure/config"
	"github.com/xiebiao/circulation/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/circulation/internal/infrastructure/persistence/mysql"
)

// Storage 仓储与事务管理器,三者共享同一个底层存储
type Storage struct {
	Books     catalog.Repository
	Loans     loan.Repository
	TxManager circulation.Transactor

	driver string
	db     *gorm.DB // memory驱动时为nil
}

// Open 打开存储
// memory:进程内存储,重启丢失
// mysql/sqlite:GORM连接,auto_migrate时建表
func Open(cfg *config.Config) (*Storage, error) {
	if cfg.Database.Driver == config.DriverMemory {
		store := memory.NewStore()
		slog.Warn("using in-memory storage, data is lost on restart")
		return &Storage{
			Books:     store.Books(),
			Loans:     store.Loans(),
			TxManager: store,
			driver:    config.DriverMemory,
		}, nil
	}

	db, err := mysql.NewDB(cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{
		Books:     mysql.NewBookRepository(db),
		Loans:     mysql.NewLoanRepository(db),
		TxManager: mysql.NewTxManager(db),
		driver:    cfg.Database.Driver,
		db:        db,
	}, nil
}

// Driver 实际使用的驱动名
func (s *Storage) Driver() string {
	return s.driver
}

// Migrate 建表;memory驱动无需迁移
func (s *Storage) Migrate() error {
	if s.db == nil {
		return nil
	}
	return mysql.Migrate(s.db)
}

// Ping 健康检查探针
func (s *Storage) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭连接池
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return mysql.Close(s.db)
}
