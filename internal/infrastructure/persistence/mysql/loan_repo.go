package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/circulation/internal/domain/loan"
	apperrors "github.com/xiebiao/circulation/pkg/errors"
)

// loanRepository 借阅记录仓储实现(log表)
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository 创建借阅记录仓储
func NewLoanRepository(db *gorm.DB) loan.Repository {
	return &loanRepository{db: db}
}

// Create 新增借阅记录
func (r *loanRepository) Create(ctx context.Context, rec *loan.Record) error {
	model := toLoanModel(rec)
	model.ID = 0

	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "failed to create loan record")
	}

	rec.ID = model.ID
	return nil
}

// Update 整行写回
func (r *loanRepository) Update(ctx context.Context, rec *loan.Record) error {
	db := getDB(ctx, r.db)
	model := toLoanModel(rec)

	result := db.Model(&LoanModel{ID: rec.ID}).Select("*").Omit("id").Updates(model)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "failed to update loan record")
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&LoanModel{}).Where("id = ?", rec.ID).Count(&count).Error; err != nil {
			return apperrors.Wrap(err, "failed to query loan record")
		}
		if count == 0 {
			return apperrors.New(apperrors.ErrCodeNotFound, "loan record not found")
		}
	}
	return nil
}

// FindLatestOpen 某本书最近借出且未归还的记录
// 锁定读:总是读到最新提交的版本,而不是事务快照
func (r *loanRepository) FindLatestOpen(ctx context.Context, bookID uint) (*loan.Record, error) {
	var model LoanModel
	err := getDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("book_id = ? AND returned_date IS NULL", bookID).
		Order("borrowed_date DESC").
		Order("borrowed_time DESC").
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrNoOpenRecord
		}
		return nil, apperrors.Wrap(err, "failed to query loan record")
	}
	return toLoanEntity(&model), nil
}

// ListOpenByBooks 多本书的未归还记录
func (r *loanRepository) ListOpenByBooks(ctx context.Context, bookIDs []uint) ([]*loan.Record, error) {
	if len(bookIDs) == 0 {
		return []*loan.Record{}, nil
	}

	var models []LoanModel
	err := getDB(ctx, r.db).
		Where("book_id IN ? AND returned_date IS NULL", bookIDs).
		Order("book_id ASC").
		Order("borrowed_date DESC").
		Order("borrowed_time DESC").
		Order("id DESC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list loan records")
	}

	records := make([]*loan.Record, len(models))
	for i := range models {
		records[i] = toLoanEntity(&models[i])
	}
	return records, nil
}

// CountOpenByBook 每本书的未归还记录数
func (r *loanRepository) CountOpenByBook(ctx context.Context) (map[uint]int, error) {
	var rows []struct {
		BookID    uint
		OpenCount int
	}
	err := getDB(ctx, r.db).
		Model(&LoanModel{}).
		Select("book_id, COUNT(*) AS open_count").
		Where("returned_date IS NULL").
		Group("book_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count loan records")
	}

	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.BookID] = row.OpenCount
	}
	return counts, nil
}
