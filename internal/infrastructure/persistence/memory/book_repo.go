package memory

import (
	"context"

	"github.com/xiebiao/circulation/internal/domain/catalog"
)

type bookRepository struct {
	s *Store
}

func (r *bookRepository) Create(ctx context.Context, b *catalog.Book) error {
	b.ID = r.s.allocBookID()
	r.s.writeBook(txFrom(ctx), *b)
	return nil
}

func (r *bookRepository) FindByID(ctx context.Context, id uint) (*catalog.Book, error) {
	b, ok := r.s.book(txFrom(ctx), id)
	if !ok {
		return nil, catalog.ErrBookNotFound
	}
	return &b, nil
}

func (r *bookRepository) FindByISBN(ctx context.Context, isbn string) (*catalog.Book, error) {
	for _, b := range r.s.snapshotBooks(txFrom(ctx)) {
		if b.ISBN == isbn {
			return &b, nil
		}
	}
	return nil, catalog.ErrBookNotFound
}

// LockByISBN 先定位ID,加锁后重新读取(锁等待期间可能已被其他事务修改)
func (r *bookRepository) LockByISBN(ctx context.Context, isbn string) (*catalog.Book, error) {
	found, err := r.FindByISBN(ctx, isbn)
	if err != nil {
		return nil, err
	}

	t := txFrom(ctx)
	if t == nil {
		return found, nil
	}
	if err := r.s.lock(ctx, t, found.ID); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, found.ID)
}

func (r *bookRepository) Update(ctx context.Context, b *catalog.Book) error {
	if _, ok := r.s.book(txFrom(ctx), b.ID); !ok {
		return catalog.ErrBookNotFound
	}
	r.s.writeBook(txFrom(ctx), *b)
	return nil
}

func (r *bookRepository) Search(ctx context.Context, pred catalog.Predicate) ([]*catalog.Book, error) {
	var out []*catalog.Book
	for _, b := range r.s.snapshotBooks(txFrom(ctx)) {
		if pred.Match(&b) {
			out = append(out, &b)
		}
	}
	return out, nil
}
