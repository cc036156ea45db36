package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
	"github.com/xiebiao/circulation/internal/infrastructure/persistence/memory"
)

type fixture struct {
	store   *memory.Store
	add     *AddBookUseCase
	search  *SearchBooksUseCase
	verify  *VerifyInventoryUseCase
	service catalog.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.NewStore()
	svc := catalog.NewService(s.Books())
	return &fixture{
		store:   s,
		service: svc,
		add:     NewAddBookUseCase(svc),
		search:  NewSearchBooksUseCase(s.Books(), s.Loans()),
		verify:  NewVerifyInventoryUseCase(s.Books(), s.Loans()),
	}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, req := range []AddBookRequest{
		{ISBN: "9780134190440", Title: "The Go Programming Language", Author: "Alan Donovan", Publisher: "Addison-Wesley", PublishedDate: "2015-10-26", Quantity: 3},
		{ISBN: "9781491941195", Title: "Concurrency in Go", Author: "Katherine Cox-Buday", Publisher: "O'Reilly", PublishedDate: "2017-08-01", Quantity: 1},
		{ISBN: "9780262510875", Title: "Structure and Interpretation of Computer Programs", Author: "Harold Abelson", Publisher: "MIT Press", PublishedDate: "1996-07-25", Quantity: 2},
	} {
		_, err := f.add.Execute(ctx, req)
		require.NoError(t, err)
	}
}

// borrow 直接写入一条未归还记录并扣减在架数量
func (f *fixture) borrow(t *testing.T, bookID uint, email string) {
	t.Helper()
	ctx := context.Background()
	b, err := f.store.Books().FindByID(ctx, bookID)
	require.NoError(t, err)
	require.NoError(t, b.CheckOut())
	require.NoError(t, f.store.Books().Update(ctx, b))
	rec := loan.Open(b, loan.Borrower{FirstName: "A", LastName: "B", Email: email}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, f.store.Loans().Create(ctx, rec))
}

func TestAddBook(t *testing.T) {
	f := newFixture(t)

	view, err := f.add.Execute(context.Background(), AddBookRequest{ISBN: "42", Title: "Untitled", Quantity: 2})
	require.NoError(t, err)
	assert.NotZero(t, view.ID)
	assert.Equal(t, "1900-01-01", view.PublishedDate)
	assert.Equal(t, catalog.UnknownValue, view.Author)
	assert.Equal(t, 2, view.AvailableQuantity)

	_, err = f.add.Execute(context.Background(), AddBookRequest{ISBN: "42", Title: "x", Quantity: -1})
	assert.ErrorIs(t, err, catalog.ErrInvalidQuantity)
}

func TestSearchBooks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)
	f.borrow(t, 1, "reader@example.com")

	t.Run("无条件列出全部", func(t *testing.T) {
		resp, err := f.search.Execute(ctx, SearchBooksRequest{})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Total)
		require.Len(t, resp.Borrowed, 1)
		assert.Equal(t, "reader@example.com", resp.Borrowed[0].BorrowerEmail)
		assert.Equal(t, "2024-01-02", resp.Borrowed[0].BorrowedDate)
	})

	t.Run("简单检索", func(t *testing.T) {
		resp, err := f.search.Execute(ctx, SearchBooksRequest{Filters: catalog.Filters{Q: "go", PublishedFrom: "2016-01-01"}})
		require.NoError(t, err)
		require.Len(t, resp.Books, 1)
		assert.Equal(t, "Concurrency in Go", resp.Books[0].Title)
		assert.Empty(t, resp.Borrowed, "只返回结果集内的借阅")
	})

	t.Run("高级检索", func(t *testing.T) {
		resp, err := f.search.Execute(ctx, SearchBooksRequest{Query: &catalog.Query{Clauses: []catalog.Clause{
			{Field: "any_field", Operator: "icontains", Term: "go"},
			{Field: "author", Operator: "icontains", Term: "abelson", Logic: "OR"},
			{Field: "publisher", Operator: "iexact", Term: "o'reilly", Logic: "NOT"},
		}}})
		require.NoError(t, err)
		var titles []string
		for _, b := range resp.Books {
			titles = append(titles, b.Title)
		}
		assert.Equal(t, []string{"The Go Programming Language", "Structure and Interpretation of Computer Programs"}, titles)
	})

	t.Run("空的高级检索", func(t *testing.T) {
		resp, err := f.search.Execute(ctx, SearchBooksRequest{Query: &catalog.Query{}})
		require.NoError(t, err)
		assert.Zero(t, resp.Total)
		assert.NotNil(t, resp.Books)
	})

	t.Run("非法子句", func(t *testing.T) {
		_, err := f.search.Execute(ctx, SearchBooksRequest{Query: &catalog.Query{Clauses: []catalog.Clause{
			{Field: "price", Operator: "icontains", Term: "1"},
		}}})
		assert.ErrorIs(t, err, catalog.ErrInvalidSearch)
	})
}

type fakeCache struct {
	pages map[uint]*BookPage
	gets  int
	sets  int
}

func (c *fakeCache) GetPage(_ context.Context, id uint) (*BookPage, bool) {
	c.gets++
	p, ok := c.pages[id]
	return p, ok
}

func (c *fakeCache) SetPage(_ context.Context, p *BookPage) {
	c.sets++
	c.pages[p.Book.ID] = p
}

func TestGetBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)
	f.borrow(t, 3, "x@y.z")

	cache := &fakeCache{pages: map[uint]*BookPage{}}
	uc := NewGetBookUseCase(f.service, f.store.Loans(), cache)

	page, err := uc.Execute(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Book.AvailableQuantity)
	require.Len(t, page.Borrowed, 1)
	assert.Equal(t, "x@y.z", page.Borrowed[0].BorrowerEmail)
	assert.Equal(t, 1, cache.sets)

	again, err := uc.Execute(ctx, 3)
	require.NoError(t, err)
	assert.Same(t, page, again, "第二次命中缓存")
	assert.Equal(t, 1, cache.sets)

	_, err = uc.Execute(ctx, 99)
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)

	noCache := NewGetBookUseCase(f.service, f.store.Loans(), nil)
	page, err = noCache.Execute(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Borrowed)
}

func TestVerifyInventory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)
	f.borrow(t, 1, "ok@example.com")

	resp, err := f.verify.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Checked)
	assert.True(t, resp.OK())

	// 人为制造不一致:数量显示借出,但没有记录
	b, err := f.store.Books().FindByID(ctx, 2)
	require.NoError(t, err)
	b.AvailableQuantity = 0
	require.NoError(t, f.store.Books().Update(ctx, b))

	// 越界
	b3, err := f.store.Books().FindByID(ctx, 3)
	require.NoError(t, err)
	b3.AvailableQuantity = 5
	require.NoError(t, f.store.Books().Update(ctx, b3))

	resp, err = f.verify.Execute(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Discrepancies, 2)
	assert.Equal(t, uint(2), resp.Discrepancies[0].Book.ID)
	assert.Len(t, resp.Discrepancies[0].Problems, 1)
	assert.Equal(t, uint(3), resp.Discrepancies[1].Book.ID)
	assert.Len(t, resp.Discrepancies[1].Problems, 2)
}
