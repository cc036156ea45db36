package catalog

import (
	"context"

	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
)

// BookPage 图书详情页:馆藏记录加当前未归还的借阅
type BookPage struct {
	Book     BookView   `json:"book"`
	Borrowed []LoanView `json:"borrowed"`
}

// PageCache 详情页缓存(Redis实现)
// 缓存故障由实现自行记录,调用方按未命中处理
type PageCache interface {
	GetPage(ctx context.Context, bookID uint) (*BookPage, bool)
	SetPage(ctx context.Context, page *BookPage)
}

// GetBookUseCase 图书详情用例
// Cache-Aside:先查缓存,未命中查库后回填;借还事件触发失效
type GetBookUseCase struct {
	service catalog.Service
	loans   loan.Repository
	cache   PageCache
}

// NewGetBookUseCase 创建详情用例,cache可以为nil
func NewGetBookUseCase(service catalog.Service, loans loan.Repository, cache PageCache) *GetBookUseCase {
	return &GetBookUseCase{service: service, loans: loans, cache: cache}
}

// Execute 查询详情
func (uc *GetBookUseCase) Execute(ctx context.Context, bookID uint) (*BookPage, error) {
	if uc.cache != nil {
		if page, ok := uc.cache.GetPage(ctx, bookID); ok {
			return page, nil
		}
	}

	b, err := uc.service.GetBookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	open, err := uc.loans.ListOpenByBooks(ctx, []uint{b.ID})
	if err != nil {
		return nil, err
	}

	page := &BookPage{Book: toBookView(b), Borrowed: toLoanViews(open)}
	if uc.cache != nil {
		uc.cache.SetPage(ctx, page)
	}
	return page, nil
}
