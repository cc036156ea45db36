package main

import (
	"bufio"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	appcatalog "github.com/xiebiao/circulation/internal/application/catalog"
	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/infrastructure/messaging"
	"github.com/xiebiao/circulation/pkg/mq"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the bookinventory and log tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.storage.Migrate(); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "migrated (%s)\n", svc.storage.Driver())
			return nil
		},
	}
}

func (c *cli) addBookCmd() *cobra.Command {
	var req appcatalog.AddBookRequest

	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add a catalog record; total and available quantity both start at --quantity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			view, err := svc.addBook.Execute(cmd.Context(), req)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(c.out, view)
			}
			return printBooks(c.out, []appcatalog.BookView{*view})
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.ISBN, "isbn", "", "ISBN (at most 13 characters)")
	f.StringVar(&req.Title, "title", "", "title")
	f.StringVar(&req.Author, "author", "", "author (default \"Unknown\")")
	f.StringVar(&req.Publisher, "publisher", "", "publisher (default \"Unknown\")")
	f.StringVar(&req.PublishedDate, "published-date", "", "YYYY-MM-DD (default 1900-01-01)")
	f.IntVar(&req.Quantity, "quantity", 0, "number of copies")
	f.StringVar(&req.Description, "description", "", "description")
	f.StringVar(&req.ImageURL, "image-url", "", "cover image URL")
	_ = cmd.MarkFlagRequired("isbn")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (c *cli) checkoutCmd() *cobra.Command {
	var req circulation.CheckoutRequest

	cmd := &cobra.Command{
		Use:   "checkout ISBN",
		Short: "Check out one copy to a borrower",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ISBN = args[0]
			if interactive(c.in) {
				sc := bufio.NewScanner(c.in)
				prompt(c, sc, "First name: ", &req.FirstName)
				prompt(c, sc, "Last name: ", &req.LastName)
				prompt(c, sc, "Email: ", &req.Email)
			}

			svc, cleanup, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := svc.checkout.Execute(cmd.Context(), req)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(c.out, resp)
			}
			fmt.Fprintln(c.out, "Thanks for checking out the book.")
			fmt.Fprintf(c.out, "%s (%s): %d of %d available, loan #%d\n",
				resp.Title, resp.ISBN, resp.AvailableQuantity, resp.TotalQuantity, resp.LoanID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.FirstName, "first-name", "", "borrower first name")
	f.StringVar(&req.LastName, "last-name", "", "borrower last name")
	f.StringVar(&req.Email, "email", "", "borrower email")
	return cmd
}

// prompt 只补全为空的字段
func prompt(c *cli, sc *bufio.Scanner, label string, dst *string) {
	if *dst != "" {
		return
	}
	fmt.Fprint(c.out, label)
	if sc.Scan() {
		*dst = strings.TrimSpace(sc.Text())
	}
}

func (c *cli) checkinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkin ISBN",
		Short: "Check in the most recently borrowed open copy of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := svc.checkin.Execute(cmd.Context(), circulation.CheckinRequest{ISBN: args[0]})
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(c.out, resp)
			}
			fmt.Fprintln(c.out, "Book checked in successfully.")
			fmt.Fprintf(c.out, "%s (%s): %d of %d available, loan #%d returned by %s\n",
				resp.Title, resp.ISBN, resp.AvailableQuantity, resp.TotalQuantity, resp.LoanID, resp.BorrowerEmail)
			return nil
		},
	}
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a catalog record and its open loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return catalog.ErrBookNotFound
			}

			svc, cleanup, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			page, err := svc.getBook.Execute(cmd.Context(), uint(id))
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(c.out, page)
			}
			if err := printBooks(c.out, []appcatalog.BookView{page.Book}); err != nil {
				return err
			}
			if len(page.Borrowed) == 0 {
				return nil
			}
			fmt.Fprintln(c.out)
			return printLoans(c.out, page.Borrowed)
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	var (
		filters catalog.Filters
		clauses []string
		loans   bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the catalog",
		Long: `Without --where, all non-empty filters are combined with AND and no filter lists everything.

--where switches to advanced search. Each clause is LOGIC:FIELD:OPERATOR:TERM and clauses
combine left to right, for example:

  libctl search --where AND:title:icontains:go --where NOT:publisher:iexact:o'reilly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := appcatalog.SearchBooksRequest{Filters: filters}
			if len(clauses) > 0 {
				q, err := parseClauses(clauses, filters)
				if err != nil {
					return err
				}
				req.Query = q
			}

			svc, cleanup, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := svc.search.Execute(cmd.Context(), req)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(c.out, resp)
			}
			if err := printBooks(c.out, resp.Books); err != nil {
				return err
			}
			if loans && len(resp.Borrowed) > 0 {
				fmt.Fprintln(c.out)
				return printLoans(c.out, resp.Borrowed)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&filters.Q, "q", "", "match title, publisher, author, description or ISBN")
	f.StringVar(&filters.Title, "title", "", "title contains")
	f.StringVar(&filters.Author, "author", "", "author contains")
	f.StringVar(&filters.Publisher, "publisher", "", "publisher contains")
	f.StringVar(&filters.ISBN, "isbn", "", "ISBN contains")
	f.StringVar(&filters.PublishedFrom, "published-from", "", "published on or after YYYY-MM-DD")
	f.StringVar(&filters.PublishedTo, "published-to", "", "published on or before YYYY-MM-DD")
	f.StringVar(&filters.AvailableQuantity, "available", "", "exact available quantity")
	f.StringArrayVar(&clauses, "where", nil, "advanced clause LOGIC:FIELD:OPERATOR:TERM (repeatable)")
	f.BoolVar(&loans, "loans", false, "also list open loans of the matched books")
	return cmd
}

// parseClauses 解析--where,日期范围沿用--published-from/--published-to
func parseClauses(raw []string, filters catalog.Filters) (*catalog.Query, error) {
	q := &catalog.Query{PublishedFrom: filters.PublishedFrom, PublishedTo: filters.PublishedTo}
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid --where %q, want LOGIC:FIELD:OPERATOR:TERM", r)
		}
		q.Clauses = append(q.Clauses, catalog.Clause{
			Logic:    parts[0],
			Field:    parts[1],
			Operator: parts[2],
			Term:     parts[3],
		})
	}
	return q, nil
}

func (c *cli) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Report records whose quantities disagree with the open loan records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := svc.verify.Execute(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput {
				if err := printJSON(c.out, resp); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(c.out, "checked %d records, %d discrepancies\n", resp.Checked, len(resp.Discrepancies))
				if !resp.OK() {
					tw := newTable(c.out, "ID", "ISBN", "AVAILABLE", "TOTAL", "OPEN LOANS", "PROBLEMS")
					for _, d := range resp.Discrepancies {
						fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\n",
							d.Book.ID, d.Book.ISBN, d.Book.AvailableQuantity, d.Book.TotalQuantity, d.OpenLoans, strings.Join(d.Problems, "; "))
					}
					if err := tw.Flush(); err != nil {
						return err
					}
				}
			}
			if !resp.OK() {
				return fmt.Errorf("inventory check failed: %d discrepancies", len(resp.Discrepancies))
			}
			return nil
		},
	}
}

func (c *cli) eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Consume circulation events from the message queue and print an audit line per event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mqCfg := c.cfg.MQ
			consumer, err := mq.NewConsumer(mqCfg.URL, mqCfg.Exchange, mqCfg.ExchangeType, mqCfg.Queue,
				[]string{messaging.RoutingKeyPrefix + "#"})
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = consumer.Consume(ctx, messaging.AuditHandler(c.out))
			if err != nil && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}
