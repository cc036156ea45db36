package circulation

import (
	"context"
	"strings"

	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
)

// CheckoutUseCase 借出用例
//
// 同一ISBN的并发借出必须串行,否则会出现"两个请求都读到available=1"的丢失更新
// 做法是悲观锁:
//  1. 事务开始先 SELECT ... FOR UPDATE 锁住馆藏行
//  2. 锁内检查在架数量
//  3. 新增借阅记录
//  4. 在架数量-1
//  5. COMMIT,锁随之释放
//
// 不同ISBN锁的是不同的行,互不阻塞
type CheckoutUseCase struct {
	books     catalog.Repository
	loans     loan.Repository
	txManager Transactor
	observer  Observer
	cfg       Config
}

// NewCheckoutUseCase 创建借出用例,observer可以为nil
func NewCheckoutUseCase(
	books catalog.Repository,
	loans loan.Repository,
	txManager Transactor,
	observer Observer,
	cfg Config,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		books:     books,
		loans:     loans,
		txManager: txManager,
		observer:  observer,
		cfg:       cfg,
	}
}

// CheckoutRequest 借出请求
type CheckoutRequest struct {
	ISBN      string
	FirstName string
	LastName  string
	Email     string
}

// CheckoutResponse 借出结果
type CheckoutResponse struct {
	LoanID            uint   `json:"loan_id"`
	BookID            uint   `json:"book_id"`
	ISBN              string `json:"isbn"`
	Title             string `json:"title"`
	AvailableQuantity int    `json:"available_quantity"`
	TotalQuantity     int    `json:"total_quantity"`
	BorrowedDate      string `json:"borrowed_date"`
	BorrowedTime      string `json:"borrowed_time"`
}

// Execute 执行借出
func (uc *CheckoutUseCase) Execute(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	// 借阅人信息在碰存储之前校验,失败不产生任何副作用
	who, err := loan.NewBorrower(req.FirstName, req.LastName, req.Email)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := uc.cfg.withLockTimeout(ctx)
	defer cancel()

	var (
		book   *catalog.Book
		record *loan.Record
	)
	err = uc.txManager.Transaction(txCtx, func(txCtx context.Context) error {
		b, err := uc.books.LockByISBN(txCtx, strings.TrimSpace(req.ISBN))
		if err != nil {
			return err
		}
		// 必须在拿到锁之后检查
		if err := b.CanCheckOut(); err != nil {
			return err
		}

		r := loan.Open(b, who, uc.cfg.now())
		if err := uc.loans.Create(txCtx, r); err != nil {
			return err
		}

		if err := b.CheckOut(); err != nil {
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
		uc.observer.OnCirculation(ctx, newEvent(EventCheckedOut, book, record, record.BorrowedAt()))
	}

	return &CheckoutResponse{
		LoanID:            record.ID,
		BookID:            book.ID,
		ISBN:              book.ISBN,
		Title:             book.Title,
		AvailableQuantity: book.AvailableQuantity,
		TotalQuantity:     book.TotalQuantity,
		BorrowedDate:      record.BorrowedDate.Format(catalog.DateLayout),
		BorrowedTime:      record.BorrowedTime.String(),
	}, nil
}
