package catalog

import (
	"context"
)

// Service 馆藏领域服务
type Service interface {
	// Register 新书入库
	// 业务规则见NewBook;同一ISBN允许重复入库(与编目工具行为一致)
	Register(ctx context.Context, p NewBookParams) (*Book, error)

	// GetBookByID 根据ID获取馆藏记录
	GetBookByID(ctx context.Context, id uint) (*Book, error)
}

type service struct {
	repo Repository
}

// NewService 创建馆藏领域服务
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, p NewBookParams) (*Book, error) {
	b, err := NewBook(p)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) GetBookByID(ctx context.Context, id uint) (*Book, error) {
	if id == 0 {
		return nil, ErrBookNotFound
	}
	return s.repo.FindByID(ctx, id)
}
