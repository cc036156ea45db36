package catalog

import (
	"context"

	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
)

// SearchBooksUseCase 馆藏检索用例
// 简单检索:若干可选过滤条件AND组合,全空时列出全部
// 高级检索:子句按输入顺序从左到右组合,空请求返回空结果
// 两者都附带结果集中未归还的借阅记录(借阅人邮箱)
type SearchBooksUseCase struct {
	books catalog.Repository
	loans loan.Repository
}

// NewSearchBooksUseCase 创建检索用例
func NewSearchBooksUseCase(books catalog.Repository, loans loan.Repository) *SearchBooksUseCase {
	return &SearchBooksUseCase{books: books, loans: loans}
}

// SearchBooksRequest 检索请求,Query非nil时走高级检索
type SearchBooksRequest struct {
	Filters catalog.Filters
	Query   *catalog.Query
}

// SearchBooksResponse 检索结果
type SearchBooksResponse struct {
	Books    []BookView `json:"books"`
	Borrowed []LoanView `json:"borrowed"`
	Total    int        `json:"total"`
}

// Execute 执行检索
func (uc *SearchBooksUseCase) Execute(ctx context.Context, req SearchBooksRequest) (*SearchBooksResponse, error) {
	var (
		pred catalog.Predicate
		err  error
	)
	if req.Query != nil {
		pred, err = req.Query.Predicate()
	} else {
		pred, err = req.Filters.Predicate()
	}
	if err != nil {
		return nil, err
	}

	resp := &SearchBooksResponse{Books: []BookView{}, Borrowed: []LoanView{}}
	if _, none := pred.(catalog.MatchNone); none {
		return resp, nil
	}

	books, err := uc.books.Search(ctx, pred)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return resp, nil
	}

	ids := make([]uint, len(books))
	for i, b := range books {
		ids[i] = b.ID
		resp.Books = append(resp.Books, toBookView(b))
	}
	resp.Total = len(books)

	open, err := uc.loans.ListOpenByBooks(ctx, ids)
	if err != nil {
		return nil, err
	}
	resp.Borrowed = toLoanViews(open)
	return resp, nil
}
