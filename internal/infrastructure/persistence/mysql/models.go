package mysql

import (
	"time"

	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
)

// BookModel GORM馆藏模型
// 设计说明:
// 1. 这是infrastructure层的数据模型，包含GORM tag
// 2. domain/catalog/entity.go是领域实体，不依赖GORM
// 3. 表名、列名沿用编目工具直接写入的bookinventory表
// 4. ISBN只有普通索引,编目工具允许同一ISBN重复入库
type BookModel struct {
	ID                uint      `gorm:"primaryKey"`
	Title             string    `gorm:"size:255;not null;comment:书名"`
	Author            string    `gorm:"size:255;not null;comment:作者"`
	ISBN              string    `gorm:"column:isbn;index;size:13;not null;comment:ISBN号"`
	PublishedDate     time.Time `gorm:"type:date;not null;comment:出版日期"`
	Publisher         string    `gorm:"size:255;not null;comment:出版社"`
	Quantity          int       `gorm:"not null;default:0;comment:馆藏数量"`
	AvailableQuantity int       `gorm:"not null;default:0;comment:在架数量"`
	Description       string    `gorm:"type:text;comment:简介"`
	ImageURL          string    `gorm:"column:image_url;size:255;comment:封面图片URL"`
}

// TableName 指定表名
func (BookModel) TableName() string {
	return "bookinventory"
}

// LoanModel GORM借阅记录模型
// 教学要点:
// 1. 借还日期用DATE,时刻用TIME(6),与借书台的流水账格式一致
// 2. returned_date为NULL表示未归还
// 3. (book_id, returned_date)联合索引覆盖"某本书未归还记录"查询
type LoanModel struct {
	ID                uint            `gorm:"primaryKey"`
	BookID            uint            `gorm:"index:idx_log_book_returned,priority:1;not null;comment:馆藏记录ID"`
	Title             string          `gorm:"size:255;not null"`
	Author            string          `gorm:"size:255;not null"`
	Publisher         string          `gorm:"size:255;not null"`
	PublicationDate   time.Time       `gorm:"type:date;not null"`
	ISBN              string          `gorm:"column:isbn;size:13;not null"`
	BorrowerFirstName string          `gorm:"size:255;not null"`
	BorrowerLastName  string          `gorm:"size:255;not null"`
	BorrowerEmail     string          `gorm:"size:255;not null"`
	BorrowedDate      time.Time       `gorm:"type:date;not null;comment:借出日期"`
	BorrowedTime      loan.TimeOfDay  `gorm:"type:time(6);not null;comment:借出时刻"`
	ReturnedDate      *time.Time      `gorm:"type:date;index:idx_log_book_returned,priority:2;comment:归还日期"`
	ReturnedTime      *loan.TimeOfDay `gorm:"type:time(6);comment:归还时刻"`
}

// TableName 指定表名
func (LoanModel) TableName() string {
	return "log"
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toBookModel(b *catalog.Book) *BookModel {
	return &BookModel{
		ID:                b.ID,
		Title:             b.Title,
		Author:            b.Author,
		ISBN:              b.ISBN,
		PublishedDate:     catalog.DateOf(b.PublishedDate),
		Publisher:         b.Publisher,
		Quantity:          b.TotalQuantity,
		AvailableQuantity: b.AvailableQuantity,
		Description:       b.Description,
		ImageURL:          b.ImageURL,
	}
}

// toBookEntity GORM模型 → 领域实体
func toBookEntity(m *BookModel) *catalog.Book {
	return &catalog.Book{
		ID:                m.ID,
		ISBN:              m.ISBN,
		Title:             m.Title,
		Author:            m.Author,
		Publisher:         m.Publisher,
		PublishedDate:     catalog.DateOf(m.PublishedDate),
		TotalQuantity:     m.Quantity,
		AvailableQuantity: m.AvailableQuantity,
		Description:       m.Description,
		ImageURL:          m.ImageURL,
	}
}

func toLoanModel(r *loan.Record) *LoanModel {
	m := &LoanModel{
		ID:                r.ID,
		BookID:            r.BookID,
		Title:             r.Title,
		Author:            r.Author,
		Publisher:         r.Publisher,
		PublicationDate:   catalog.DateOf(r.PublicationDate),
		ISBN:              r.ISBN,
		BorrowerFirstName: r.BorrowerFirstName,
		BorrowerLastName:  r.BorrowerLastName,
		BorrowerEmail:     r.BorrowerEmail,
		BorrowedDate:      catalog.DateOf(r.BorrowedDate),
		BorrowedTime:      r.BorrowedTime,
		ReturnedTime:      r.ReturnedTime,
	}
	if r.ReturnedDate != nil {
		d := catalog.DateOf(*r.ReturnedDate)
		m.ReturnedDate = &d
	}
	return m
}

func toLoanEntity(m *LoanModel) *loan.Record {
	r := &loan.Record{
		ID:                m.ID,
		BookID:            m.BookID,
		Title:             m.Title,
		Author:            m.Author,
		Publisher:         m.Publisher,
		PublicationDate:   catalog.DateOf(m.PublicationDate),
		ISBN:              m.ISBN,
		BorrowerFirstName: m.BorrowerFirstName,
		BorrowerLastName:  m.BorrowerLastName,
		BorrowerEmail:     m.BorrowerEmail,
		BorrowedDate:      catalog.DateOf(m.BorrowedDate),
		BorrowedTime:      m.BorrowedTime,
		ReturnedTime:      m.ReturnedTime,
	}
	if m.ReturnedDate != nil {
		d := catalog.DateOf(*m.ReturnedDate)
		r.ReturnedDate = &d
	}
	return r
}
