package circulation

import (
	"context"
	"strings"
	"time"

	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
)

// CheckinUseCase 归还用例
// 与借出相同的锁纪律:先锁馆藏行,再关闭借阅记录、在架数量+1,一起提交
//
// 归还只按书匹配,关闭的是这本书最近借出的未归还记录,不核对归还人
type CheckinUseCase struct {
	books     catalog.Repository
	loans     loan.Repository
	txManager Transactor
	observer  Observer
	cfg       Config
}

// NewCheckinUseCase 创建归还用例,observer可以为nil
func NewCheckinUseCase(
	books catalog.Repository,
	loans loan.Repository,
	txManager Transactor,
	observer Observer,
	cfg Config,
) *CheckinUseCase {
	return &CheckinUseCase{
		books:     books,
		loans:     loans,
		txManager: txManager,
		observer:  observer,
		cfg:       cfg,
	}
}

// CheckinRequest 归还请求
type CheckinRequest struct {
	ISBN string
}

// CheckinResponse 归还结果
type CheckinResponse struct {
	LoanID            uint   `json:"loan_id"`
	BookID            uint   `json:"book_id"`
	ISBN              string `json:"isbn"`
	Title             string `json:"title"`
	AvailableQuantity int    `json:"available_quantity"`
	TotalQuantity     int    `json:"total_quantity"`
	BorrowerEmail     string `json:"borrower_email"`
	ReturnedDate      string `json:"returned_date"`
	ReturnedTime      string `json:"returned_time"`
}

// Execute 执行归还
func (uc *CheckinUseCase) Execute(ctx context.Context, req CheckinRequest) (*CheckinResponse, error) {
	isbn := strings.TrimSpace(req.ISBN)
	if isbn == "" {
		return nil, loan.ErrMissingISBN
	}

	txCtx, cancel := uc.cfg.withLockTimeout(ctx)
	defer cancel()

	var (
		book   *catalog.Book
		record *loan.Record
		now    time.Time
	)
	err := uc.txManager.Transaction(txCtx, func(txCtx context.Context) error {
		b, err := uc.books.LockByISBN(txCtx, isbn)
		if err != nil {
			return err
		}
		if err := b.CanCheckIn(); err != nil {
			return err
		}

		r, err := uc.loans.FindLatestOpen(txCtx, b.ID)
		if err != nil {
			return err
		}

		now = uc.cfg.now()
		if err := r.Close(now); err != nil {
			return err
		}
		if err := uc.loans.Update(txCtx, r); err != nil {
			return err
		}

		if err := b.CheckIn(); err != nil {
			return err
		}
		if err := uc.books.Update(txCtx, b); err != nil {
			return err
		}

		book, record = b, r
		return nil
	})
	if err != nil {
		return nil, classify(ctx, txCtx, err)
	}

	if uc.observer != nil {
		uc.observer.OnCirculation(ctx, newEvent(EventCheckedIn, book, record, now))
	}

	return &CheckinResponse{
		LoanID:            record.ID,
		BookID:            book.ID,
		ISBN:              book.ISBN,
		Title:             book.Title,
		AvailableQuantity: book.AvailableQuantity,
		TotalQuantity:     book.TotalQuantity,
		BorrowerEmail:     record.BorrowerEmail,
		ReturnedDate:      record.ReturnedDate.Format(catalog.DateLayout),
		ReturnedTime:      record.ReturnedTime.String(),
	}, nil
}
