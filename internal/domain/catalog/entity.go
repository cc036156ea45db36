package catalog

import (
	"strings"
	"time"
)

const (
	// MaxISBNLength ISBN-13的长度,bookinventory.isbn列的上限
	MaxISBNLength = 13

	// DateLayout 出版日期、借还日期统一使用的日期格式
	DateLayout = "2006-01-02"

	// UnknownValue 作者、出版社缺失时的占位值
	UnknownValue = "Unknown"
)

// DefaultPublishedDate 出版日期缺失时的默认值
var DefaultPublishedDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Book 馆藏记录(聚合根)
// 1. 一条记录代表一个书目,TotalQuantity是馆藏副本数
// 2. AvailableQuantity是在架数量,只由借还流程±1修改
// 3. ISBN不保证唯一,同一ISBN重复入库时按ID最小的记录处理
type Book struct {
	ID                uint
	ISBN              string
	Title             string
	Author            string
	Publisher         string
	PublishedDate     time.Time // 日期部分有效,统一为UTC零点
	TotalQuantity     int
	AvailableQuantity int
	Description       string
	ImageURL          string
}

// NewBookParams 新书入库参数
type NewBookParams struct {
	ISBN          string
	Title         string
	Author        string
	Publisher     string
	PublishedDate string // 2006-01-02,留空使用DefaultPublishedDate
	Quantity      int
	Description   string
	ImageURL      string
}

// NewBook 创建馆藏记录(工厂方法)
// 业务规则:
// - ISBN、书名必填,ISBN不超过13位
// - 数量>=0,入库时全部在架
// - 作者、出版社缺失时记为Unknown
func NewBook(p NewBookParams) (*Book, error) {
	isbn := strings.TrimSpace(p.ISBN)
	title := strings.TrimSpace(p.Title)
	if isbn == "" || title == "" {
		return nil, ErrInvalidBook
	}
	if len(isbn) > MaxISBNLength {
		return nil, ErrInvalidISBN
	}
	if p.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	published := DefaultPublishedDate
	if s := strings.TrimSpace(p.PublishedDate); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return nil, ErrInvalidDate
		}
		published = d
	}

	return &Book{
		ISBN:              isbn,
		Title:             title,
		Author:            orUnknown(p.Author),
		Publisher:         orUnknown(p.Publisher),
		PublishedDate:     published,
		TotalQuantity:     p.Quantity,
		AvailableQuantity: p.Quantity,
		Description:       strings.TrimSpace(p.Description),
		ImageURL:          strings.TrimSpace(p.ImageURL),
	}, nil
}

// CanCheckOut 是否还有在架副本
func (b *Book) CanCheckOut() error {
	if b.AvailableQuantity <= 0 {
		return ErrNoCopiesAvailable
	}
	return nil
}

// CheckOut 借出一本(在架数量-1)
// 调用方必须持有该记录的行锁
func (b *Book) CheckOut() error {
	if err := b.CanCheckOut(); err != nil {
		return err
	}
	b.AvailableQuantity--
	return nil
}

// CanCheckIn 是否有借出未还的副本
func (b *Book) CanCheckIn() error {
	if b.AvailableQuantity >= b.TotalQuantity {
		return ErrNotCheckedOut
	}
	return nil
}

// CheckIn 归还一本(在架数量+1)
// 调用方必须持有该记录的行锁
func (b *Book) CheckIn() error {
	if err := b.CanCheckIn(); err != nil {
		return err
	}
	b.AvailableQuantity++
	return nil
}

// OnLoan 借出未还的数量
func (b *Book) OnLoan() int {
	return b.TotalQuantity - b.AvailableQuantity
}

// QuantityInBounds 0 <= available <= total
func (b *Book) QuantityInBounds() bool {
	return b.AvailableQuantity >= 0 && b.AvailableQuantity <= b.TotalQuantity
}

// ParseDate 解析2006-01-02格式日期,结果为UTC零点
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// DateOf 取t在其所在时区的日历日期,返回该日期的UTC零点
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return UnknownValue
	}
	return s
}
