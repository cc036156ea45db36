package loan

import (
	"sort"
	"time"

	"github.com/xiebiao/circulation/internal/domain/catalog"
)

// Record 借阅记录
// 1. 借出时快照书目信息(书名、作者、出版社、出版日期、ISBN),之后编目修改不影响历史
// 2. ReturnedDate为nil表示未归还(open)
// 3. 只由借出创建、由归还关闭一次,不删除也不重新打开
type Record struct {
	ID     uint
	BookID uint // 指向catalog.Book,非拥有关系

	Title           string
	Author          string
	Publisher       string
	PublicationDate time.Time
	ISBN            string

	BorrowerFirstName string
	BorrowerLastName  string
	BorrowerEmail     string

	BorrowedDate time.Time
	BorrowedTime TimeOfDay
	ReturnedDate *time.Time
	ReturnedTime *TimeOfDay
}

// Open 为一次借出创建记录
func Open(b *catalog.Book, who Borrower, now time.Time) *Record {
	return &Record{
		BookID:            b.ID,
		Title:             b.Title,
		Author:            b.Author,
		Publisher:         b.Publisher,
		PublicationDate:   b.PublishedDate,
		ISBN:              b.ISBN,
		BorrowerFirstName: who.FirstName,
		BorrowerLastName:  who.LastName,
		BorrowerEmail:     who.Email,
		BorrowedDate:      catalog.DateOf(now),
		BorrowedTime:      ClockOf(now),
	}
}

// IsOpen 未归还
func (r *Record) IsOpen() bool {
	return r.ReturnedDate == nil
}

// Close 登记归还时间
func (r *Record) Close(now time.Time) error {
	if !r.IsOpen() {
		return ErrAlreadyReturned
	}
	date := catalog.DateOf(now)
	clock := ClockOf(now)
	r.ReturnedDate = &date
	r.ReturnedTime = &clock
	return nil
}

// BorrowedAt 借出日期与时刻合成的时间点(UTC)
func (r *Record) BorrowedAt() time.Time {
	return r.BorrowedDate.Add(time.Duration(r.BorrowedTime))
}

// Newer 按(借出日期, 借出时刻, ID)比较,a比b新返回true
// 选取"最近一条未归还记录"时使用,ID保证结果确定
func Newer(a, b *Record) bool {
	if !a.BorrowedDate.Equal(b.BorrowedDate) {
		return a.BorrowedDate.After(b.BorrowedDate)
	}
	if a.BorrowedTime != b.BorrowedTime {
		return a.BorrowedTime > b.BorrowedTime
	}
	return a.ID > b.ID
}

// SortNewestFirst 原地按Newer排序
func SortNewestFirst(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return Newer(records[i], records[j])
	})
}
