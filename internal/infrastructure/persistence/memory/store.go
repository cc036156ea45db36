// Package memory 进程内存储
// 用于单机模式和测试,行为与MySQL实现一致:
// 每本书一把行锁,事务内的写先暂存,fn成功后一次性提交,失败则丢弃
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
)

// Store 内存存储,同时充当事务管理器
type Store struct {
	mu         sync.Mutex
	books      map[uint]catalog.Book
	loans      map[uint]loan.Record
	nextBookID uint
	nextLoanID uint

	// 行锁:容量为1的channel,写入即加锁,读出即解锁
	locks map[uint]chan struct{}
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{
		books: make(map[uint]catalog.Book),
		loans: make(map[uint]loan.Record),
		locks: make(map[uint]chan struct{}),
	}
}

// Books 馆藏仓储
func (s *Store) Books() catalog.Repository {
	return &bookRepository{s: s}
}

// Loans 借阅记录仓储
func (s *Store) Loans() loan.Repository {
	return &loanRepository{s: s}
}

type txKey struct{}

// tx 一个事务的暂存区
type tx struct {
	books map[uint]catalog.Book
	loans map[uint]loan.Record
	held  map[uint]chan struct{}
}

func txFrom(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

// Transaction 执行事务
// 嵌套调用加入外层事务;锁在提交或回滚后释放
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{
		books: make(map[uint]catalog.Book),
		loans: make(map[uint]loan.Record),
		held:  make(map[uint]chan struct{}),
	}
	defer t.release()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	// 对应数据库提交时连接已被取消的情况
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range t.books {
		s.books[id] = b
	}
	for id, r := range t.loans {
		s.loans[id] = r
	}
	return nil
}

func (t *tx) release() {
	for id, ch := range t.held {
		<-ch
		delete(t.held, id)
	}
}

// lock 获取书的行锁,同一事务可重入
func (s *Store) lock(ctx context.Context, t *tx, bookID uint) error {
	if _, ok := t.held[bookID]; ok {
		return nil
	}

	s.mu.Lock()
	ch, ok := s.locks[bookID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[bookID] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
		t.held[bookID] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// book 读取一本书,事务内优先读暂存
func (s *Store) book(t *tx, id uint) (catalog.Book, bool) {
	if t != nil {
		if b, ok := t.books[id]; ok {
			return b, true
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	return b, ok
}

// snapshotLoans 已提交记录叠加事务暂存
func (s *Store) snapshotLoans(t *tx) []loan.Record {
	s.mu.Lock()
	merged := make(map[uint]loan.Record, len(s.loans))
	for id, r := range s.loans {
		merged[id] = r
	}
	s.mu.Unlock()

	if t != nil {
		for id, r := range t.loans {
			merged[id] = r
		}
	}

	out := make([]loan.Record, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// snapshotBooks 已提交馆藏叠加事务暂存,按ID升序
func (s *Store) snapshotBooks(t *tx) []catalog.Book {
	s.mu.Lock()
	merged := make(map[uint]catalog.Book, len(s.books))
	for id, b := range s.books {
		merged[id] = b
	}
	s.mu.Unlock()

	if t != nil {
		for id, b := range t.books {
			merged[id] = b
		}
	}

	out := make([]catalog.Book, 0, len(merged))
	for _, b := range merged {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// write 事务内暂存,事务外直接提交
func (s *Store) writeBook(t *tx, b catalog.Book) {
	if t != nil {
		t.books[b.ID] = b
		return
	}
	s.mu.Lock()
	s.books[b.ID] = b
	s.mu.Unlock()
}

func (s *Store) writeLoan(t *tx, r loan.Record) {
	if t != nil {
		t.loans[r.ID] = r
		return
	}
	s.mu.Lock()
	s.loans[r.ID] = r
	s.mu.Unlock()
}

// ID分配与数据库自增一致:回滚不回收
func (s *Store) allocBookID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBookID++
	return s.nextBookID
}

func (s *Store) allocLoanID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLoanID++
	return s.nextLoanID
}
