package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/circulation/internal/domain/catalog"
	apperrors "github.com/xiebiao/circulation/pkg/errors"
)

// bookRepository 馆藏仓储实现(MySQL/SQLite)
// 设计说明:
// 1. 实现domain/catalog/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 数据库错误统一包装为内部错误,找不到记录转换为ErrBookNotFound
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建馆藏仓储
func NewBookRepository(db *gorm.DB) catalog.Repository {
	return &bookRepository{db: db}
}

// Create 新书入库
func (r *bookRepository) Create(ctx context.Context, b *catalog.Book) error {
	model := toBookModel(b)
	model.ID = 0

	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "failed to create book")
	}

	// 回填自增ID
	b.ID = model.ID
	return nil
}

// FindByID 根据ID查找
func (r *bookRepository) FindByID(ctx context.Context, id uint) (*catalog.Book, error) {
	var model BookModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		return nil, notFoundOr(err, "failed to query book")
	}
	return toBookEntity(&model), nil
}

// FindByISBN 根据ISBN查找,ISBN重复时取ID最小的一条
func (r *bookRepository) FindByISBN(ctx context.Context, isbn string) (*catalog.Book, error) {
	var model BookModel
	err := getDB(ctx, r.db).
		Where("isbn = ?", isbn).
		Order("id ASC").
		First(&model).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to query book")
	}
	return toBookEntity(&model), nil
}

// LockByISBN 悲观锁查询(SELECT ... FOR UPDATE)
// 教学要点:
// 1. 必须使用getDB(ctx)从context获取事务DB,否则锁在语句结束时就释放了
// 2. 加锁前不能有普通SELECT:InnoDB可重复读下第一条普通读就建立快照,
//    之后的普通读都看不到等锁期间别人提交的数据
// 3. 重复ISBN取ID最小的一条,所有调用方争同一行
// 4. SQLite不支持行锁,GORM的sqlite方言会去掉FOR UPDATE,
//    由_txlock=immediate在事务开始时拿到库级写锁
func (r *bookRepository) LockByISBN(ctx context.Context, isbn string) (*catalog.Book, error) {
	var model BookModel
	err := getDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("isbn = ?", isbn).
		Order("id ASC").
		First(&model).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to lock book")
	}
	return toBookEntity(&model), nil
}

// Update 整行写回
func (r *bookRepository) Update(ctx context.Context, b *catalog.Book) error {
	db := getDB(ctx, r.db)
	model := toBookModel(b)

	// Select("*")让零值字段(如在架数量0)也参与更新
	result := db.Model(&BookModel{ID: b.ID}).Select("*").Omit("id").Updates(model)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "failed to update book")
	}

	if result.RowsAffected == 0 {
		// MySQL对值未变化的行返回0,再查一次确认是否存在
		var count int64
		if err := db.Model(&BookModel{}).Where("id = ?", b.ID).Count(&count).Error; err != nil {
			return apperrors.Wrap(err, "failed to query book")
		}
		if count == 0 {
			return catalog.ErrBookNotFound
		}
	}
	return nil
}

// Search 按谓词检索,结果按ID升序
func (r *bookRepository) Search(ctx context.Context, pred catalog.Predicate) ([]*catalog.Book, error) {
	if _, none := pred.(catalog.MatchNone); none {
		return []*catalog.Book{}, nil
	}

	db := getDB(ctx, r.db)
	query, args, err := buildSearchSQL(db.Dialector.Name(), pred)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build search query")
	}

	var models []BookModel
	if err := db.Raw(query, args...).Scan(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to search books")
	}

	books := make([]*catalog.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}
	return books, nil
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return catalog.ErrBookNotFound
	}
	return apperrors.Wrap(err, message)
}
