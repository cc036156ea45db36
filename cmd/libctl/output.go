package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/term"

	appcatalog "github.com/xiebiao/circulation/internal/application/catalog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// printJSON 缩进输出
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// newTable 列宽对齐的表格
func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}

func printBooks(w io.Writer, books []appcatalog.BookView) error {
	tw := newTable(w, "ID", "ISBN", "TITLE", "AUTHOR", "PUBLISHED", "AVAILABLE", "TOTAL")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\n",
			b.ID, b.ISBN, truncate(b.Title, 40), truncate(b.Author, 24), b.PublishedDate, b.AvailableQuantity, b.TotalQuantity)
	}
	return tw.Flush()
}

func printLoans(w io.Writer, loans []appcatalog.LoanView) error {
	tw := newTable(w, "LOAN", "BOOK", "ISBN", "BORROWER", "EMAIL", "BORROWED")
	for _, l := range loans {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s %s\t%s\t%s %s\n",
			l.ID, l.BookID, l.ISBN, l.BorrowerFirstName, l.BorrowerLastName, l.BorrowerEmail, l.BorrowedDate, l.BorrowedTime)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// interactive 标准输入是终端时才提示输入缺失的参数
func interactive(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
