package mysql

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/xiebiao/circulation/pkg/tracing"
)

const tracerName = "github.com/xiebiao/circulation/persistence/mysql"

// txKey context中存放事务DB的key
type txKey struct{}

// TxManager 事务管理器
// 教学要点:
// 1. 封装GORM的Transaction方法
// 2. 通过context传递事务DB(避免全局变量)
// 3. 已在事务中时直接加入外层事务,行锁一直持有到最外层提交
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction 执行事务
// 1. fn内的所有Repository操作都会在同一事务中执行
// 2. fn返回error时ROLLBACK,返回nil时COMMIT
// 3. ctx取消或超时时,正在等待的SQL(包括等锁的SELECT ... FOR UPDATE)被中断
//
// 使用示例:
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    b, err := bookRepo.LockByISBN(ctx, isbn)
//	    if err != nil {
//	        return err
//	    }
//	    if err := loanRepo.Create(ctx, loan.Open(b, who, now)); err != nil {
//	        return err // 自动回滚
//	    }
//	    _ = b.CheckOut()
//	    return bookRepo.Update(ctx, b) // nil则提交,非nil则回滚
//	})
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "db.transaction")
	span.SetAttributes(attribute.String("db.system", m.db.Dialector.Name()))
	defer func() { tracing.EndSpan(span, err) }()

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Repository的getDB方法会从context提取事务DB
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
