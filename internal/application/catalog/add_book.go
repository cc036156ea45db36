package catalog

import (
	"context"

	"github.com/xiebiao/circulation/internal/domain/catalog"
)

// AddBookUseCase 新书入库用例
// 编目工具抓取元数据后通过CLI或HTTP调用
type AddBookUseCase struct {
	service catalog.Service
}

// NewAddBookUseCase 创建入库用例
func NewAddBookUseCase(service catalog.Service) *AddBookUseCase {
	return &AddBookUseCase{service: service}
}

// AddBookRequest 入库请求
type AddBookRequest struct {
	ISBN          string
	Title         string
	Author        string
	Publisher     string
	PublishedDate string
	Quantity      int
	Description   string
	ImageURL      string
}

// Execute 执行入库
func (uc *AddBookUseCase) Execute(ctx context.Context, req AddBookRequest) (*BookView, error) {
	b, err := uc.service.Register(ctx, catalog.NewBookParams{
		ISBN:          req.ISBN,
		Title:         req.Title,
		Author:        req.Author,
		Publisher:     req.Publisher,
		PublishedDate: req.PublishedDate,
		Quantity:      req.Quantity,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		return nil, err
	}
	view := toBookView(b)
	return &view, nil
}
