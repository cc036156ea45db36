package memory

import (
	"context"
	"sort"

	"github.com/xiebiao/circulation/internal/domain/loan"
	apperrors "github.com/xiebiao/circulation/pkg/errors"
)

type loanRepository struct {
	s *Store
}

func (r *loanRepository) Create(ctx context.Context, rec *loan.Record) error {
	rec.ID = r.s.allocLoanID()
	r.s.writeLoan(txFrom(ctx), cloneRecord(rec))
	return nil
}

func (r *loanRepository) Update(ctx context.Context, rec *loan.Record) error {
	for _, existing := range r.s.snapshotLoans(txFrom(ctx)) {
		if existing.ID == rec.ID {
			r.s.writeLoan(txFrom(ctx), cloneRecord(rec))
			return nil
		}
	}
	return apperrors.New(apperrors.ErrCodeNotFound, "loan record not found")
}

func (r *loanRepository) FindLatestOpen(ctx context.Context, bookID uint) (*loan.Record, error) {
	var latest *loan.Record
	for _, rec := range r.s.snapshotLoans(txFrom(ctx)) {
		if rec.BookID != bookID || !rec.IsOpen() {
			continue
		}
		if latest == nil || loan.Newer(&rec, latest) {
			latest = &rec
		}
	}
	if latest == nil {
		return nil, loan.ErrNoOpenRecord
	}
	return latest, nil
}

func (r *loanRepository) ListOpenByBooks(ctx context.Context, bookIDs []uint) ([]*loan.Record, error) {
	wanted := make(map[uint]bool, len(bookIDs))
	for _, id := range bookIDs {
		wanted[id] = true
	}

	var out []*loan.Record
	for _, rec := range r.s.snapshotLoans(txFrom(ctx)) {
		if wanted[rec.BookID] && rec.IsOpen() {
			out = append(out, &rec)
		}
	}
	loan.SortNewestFirst(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })
	return out, nil
}

func (r *loanRepository) CountOpenByBook(ctx context.Context) (map[uint]int, error) {
	counts := make(map[uint]int)
	for _, rec := range r.s.snapshotLoans(txFrom(ctx)) {
		if rec.IsOpen() {
			counts[rec.BookID]++
		}
	}
	return counts, nil
}

func cloneRecord(rec *loan.Record) loan.Record {
	c := *rec
	if rec.ReturnedDate != nil {
		d := *rec.ReturnedDate
		c.ReturnedDate = &d
	}
	if rec.ReturnedTime != nil {
		t := *rec.ReturnedTime
		c.ReturnedTime = &t
	}
	return c
}
