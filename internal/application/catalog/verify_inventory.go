package catalog

import (
	"context"

	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
)

// Discrepancy 一条不满足库存约束的馆藏记录
type Discrepancy struct {
	Book      BookView `json:"book"`
	OpenLoans int      `json:"open_loans"`
	Problems  []string `json:"problems"`
}

// VerifyInventoryResponse 核对结果
type VerifyInventoryResponse struct {
	Checked       int           `json:"checked"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// OK 全部一致
func (r *VerifyInventoryResponse) OK() bool {
	return len(r.Discrepancies) == 0
}

// VerifyInventoryUseCase 库存核对
// 检查两条约束:0 <= 在架 <= 总数;总数-在架 == 未归还记录数
// 只读,发现问题只报告不修复
type VerifyInventoryUseCase struct {
	books catalog.Repository
	loans loan.Repository
}

// NewVerifyInventoryUseCase 创建核对用例
func NewVerifyInventoryUseCase(books catalog.Repository, loans loan.Repository) *VerifyInventoryUseCase {
	return &VerifyInventoryUseCase{books: books, loans: loans}
}

// Execute 执行核对
func (uc *VerifyInventoryUseCase) Execute(ctx context.Context) (*VerifyInventoryResponse, error) {
	books, err := uc.books.Search(ctx, catalog.MatchAll{})
	if err != nil {
		return nil, err
	}
	counts, err := uc.loans.CountOpenByBook(ctx)
	if err != nil {
		return nil, err
	}

	resp := &VerifyInventoryResponse{Checked: len(books), Discrepancies: []Discrepancy{}}
	for _, b := range books {
		var problems []string
		if !b.QuantityInBounds() {
			problems = append(problems, "available quantity out of bounds")
		}
		if b.OnLoan() != counts[b.ID] {
			problems = append(problems, "on-loan count does not match open loan records")
		}
		if len(problems) > 0 {
			resp.Discrepancies = append(resp.Discrepancies, Discrepancy{
				Book:      toBookView(b),
				OpenLoans: counts[b.ID],
				Problems:  problems,
			})
		}
	}
	return resp, nil
}
