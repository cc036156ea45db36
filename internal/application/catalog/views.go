package catalog

import (
	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
)

// BookView 馆藏记录的对外表示
type BookView struct {
	ID                uint   `json:"id"`
	ISBN              string `json:"isbn"`
	Title             string `json:"title"`
	Author            string `json:"author"`
	Publisher         string `json:"publisher"`
	PublishedDate     string `json:"published_date"`
	TotalQuantity     int    `json:"total_quantity"`
	AvailableQuantity int    `json:"available_quantity"`
	Description       string `json:"description,omitempty"`
	ImageURL          string `json:"image_url,omitempty"`
}

// LoanView 未归还借阅记录的对外表示
type LoanView struct {
	ID                uint   `json:"id"`
	BookID            uint   `json:"book_id"`
	ISBN              string `json:"isbn"`
	Title             string `json:"title"`
	BorrowerFirstName string `json:"borrower_first_name"`
	BorrowerLastName  string `json:"borrower_last_name"`
	BorrowerEmail     string `json:"borrower_email"`
	BorrowedDate      string `json:"borrowed_date"`
	BorrowedTime      string `json:"borrowed_time"`
}

func toBookView(b *catalog.Book) BookView {
	return BookView{
		ID:                b.ID,
		ISBN:              b.ISBN,
		Title:             b.Title,
		Author:            b.Author,
		Publisher:         b.Publisher,
		PublishedDate:     b.PublishedDate.Format(catalog.DateLayout),
		TotalQuantity:     b.TotalQuantity,
		AvailableQuantity: b.AvailableQuantity,
		Description:       b.Description,
		ImageURL:          b.ImageURL,
	}
}

func toLoanView(r *loan.Record) LoanView {
	return LoanView{
		ID:                r.ID,
		BookID:            r.BookID,
		ISBN:              r.ISBN,
		Title:             r.Title,
		BorrowerFirstName: r.BorrowerFirstName,
		BorrowerLastName:  r.BorrowerLastName,
		BorrowerEmail:     r.BorrowerEmail,
		BorrowedDate:      r.BorrowedDate.Format(catalog.DateLayout),
		BorrowedTime:      r.BorrowedTime.String(),
	}
}

func toLoanViews(records []*loan.Record) []LoanView {
	views := make([]LoanView, len(records))
	for i, r := range records {
		views[i] = toLoanView(r)
	}
	return views
}
