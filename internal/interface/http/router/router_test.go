package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcatalog "github.com/xiebiao/circulation/internal/application/catalog"
	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/circulation/internal/interface/http/dto"
	"github.com/xiebiao/circulation/internal/interface/http/handler"
	"github.com/xiebiao/circulation/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/circulation/pkg/errors"
)

// envelope 统一响应结构,data延迟解析
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine *gin.Engine
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, Options{Mode: gin.TestMode, MetricsEnabled: true})
}

func newTestServerWith(t *testing.T, opts Options) *testServer {
	t.Helper()

	store := memory.NewStore()
	books, loans := store.Books(), store.Loans()
	cfg := circulation.Config{LockTimeout: time.Second}

	circulationHandler := handler.NewCirculationHandler(
		circulation.NewCheckoutUseCase(books, loans, store, nil, cfg),
		circulation.NewCheckinUseCase(books, loans, store, nil, cfg),
	)
	catalogHandler := handler.NewCatalogHandler(
		appcatalog.NewAddBookUseCase(catalog.NewService(books)),
		appcatalog.NewSearchBooksUseCase(books, loans),
		appcatalog.NewGetBookUseCase(catalog.NewService(books), loans, nil),
		appcatalog.NewVerifyInventoryUseCase(books, loans),
	)

	engine := New(opts, circulationHandler, catalogHandler, nil)
	return &testServer{engine: engine, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) addBook(t *testing.T, req dto.AddBookRequest) appcatalog.BookView {
	t.Helper()
	_, env := s.do(t, http.MethodPost, "/api/v1/books", req)
	require.Equal(t, 0, env.Code, env.Message)

	var view appcatalog.BookView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

func checkoutBody() dto.CheckoutRequest {
	return dto.CheckoutRequest{FirstName: "John", LastName: "Doe", Email: "john@example.com"}
}

func TestPing(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRequestIDPropagated(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
}

func TestCheckout(t *testing.T) {
	s := newTestServer(t)
	book := s.addBook(t, dto.AddBookRequest{ISBN: "1234567890123", Title: "Go", Quantity: 1})

	t.Run("成功", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/v1/checkout/1234567890123", checkoutBody())
		assert.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 0, env.Code)
		assert.Equal(t, dto.CheckoutMessage, env.Message)

		var resp circulation.CheckoutResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, book.ID, resp.BookID)
		assert.Equal(t, 0, resp.AvailableQuantity)
		assert.Equal(t, 1, resp.TotalQuantity)
	})

	t.Run("没有可借副本", func(t *testing.T) {
		_, env := s.do(t, http.MethodPost, "/api/v1/checkout/1234567890123", checkoutBody())
		assert.Equal(t, apperrors.ErrCodeNoCopiesAvailable, env.Code)
		assert.Equal(t, catalog.ErrNoCopiesAvailable.Message, env.Message)
	})

	t.Run("邮箱不合法", func(t *testing.T) {
		body := checkoutBody()
		body.Email = "not-an-email"
		_, env := s.do(t, http.MethodPost, "/api/v1/checkout/1234567890123", body)
		assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)
	})

	t.Run("缺少字段", func(t *testing.T) {
		_, env := s.do(t, http.MethodPost, "/api/v1/checkout/1234567890123", dto.CheckoutRequest{Email: "john@example.com"})
		assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)
	})

	t.Run("ISBN不存在", func(t *testing.T) {
		_, env := s.do(t, http.MethodPost, "/api/v1/checkout/0000000000000", checkoutBody())
		assert.Equal(t, apperrors.ErrCodeBookNotFound, env.Code)
	})

	t.Run("表单提交", func(t *testing.T) {
		s.addBook(t, dto.AddBookRequest{ISBN: "9999999999999", Title: "Form", Quantity: 1})

		form := url.Values{"first_name": {"Ann"}, "last_name": {"Lee"}, "email": {"ann@example.com"}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/9999999999999", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)

		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Equal(t, 0, env.Code, env.Message)
	})

	t.Run("请求体格式错误", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/1234567890123", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)

		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Equal(t, apperrors.ErrCodeBindError, env.Code)
	})
}

// 20个并发借出抢5本:恰好5个成功,其余都是没有可借副本
func TestCheckoutConcurrency(t *testing.T) {
	s := newTestServer(t)
	book := s.addBook(t, dto.AddBookRequest{ISBN: "5555555555555", Title: "Hot", Quantity: 5})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		noCopy  int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			raw, _ := json.Marshal(dto.CheckoutRequest{
				FirstName: "Reader",
				LastName:  fmt.Sprint(idx),
				Email:     fmt.Sprintf("reader%d@example.com", idx),
			})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/5555555555555", bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			s.engine.ServeHTTP(w, req)

			var env envelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch env.Code {
			case 0:
				success++
			case apperrors.ErrCodeNoCopiesAvailable:
				noCopy++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, success)
	assert.Equal(t, 15, noCopy)

	_, env := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/books/%d", book.ID), nil)
	var page appcatalog.BookPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 0, page.Book.AvailableQuantity)
	assert.Len(t, page.Borrowed, 5)
}

func TestCheckin(t *testing.T) {
	s := newTestServer(t)
	s.addBook(t, dto.AddBookRequest{ISBN: "1234567890123", Title: "Go", Quantity: 2})

	_, env := s.do(t, http.MethodPost, "/api/v1/checkin", dto.CheckinRequest{ISBN: "1234567890123"})
	assert.Equal(t, apperrors.ErrCodeNotCheckedOut, env.Code)

	_, env = s.do(t, http.MethodPost, "/api/v1/checkout/1234567890123", checkoutBody())
	require.Equal(t, 0, env.Code)

	_, env = s.do(t, http.MethodPost, "/api/v1/checkin", dto.CheckinRequest{ISBN: "1234567890123"})
	require.Equal(t, 0, env.Code, env.Message)
	assert.Equal(t, dto.CheckinMessage, env.Message)

	var resp circulation.CheckinResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 2, resp.AvailableQuantity)
	assert.Equal(t, "john@example.com", resp.BorrowerEmail)

	_, env = s.do(t, http.MethodPost, "/api/v1/checkin", dto.CheckinRequest{})
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)

	_, env = s.do(t, http.MethodPost, "/api/v1/checkin", dto.CheckinRequest{ISBN: "0000000000000"})
	assert.Equal(t, apperrors.ErrCodeBookNotFound, env.Code)
}

func TestSearchAndDetail(t *testing.T) {
	s := newTestServer(t)
	gopl := s.addBook(t, dto.AddBookRequest{
		ISBN: "9780134190440", Title: "The Go Programming Language", Author: "Donovan",
		Publisher: "Addison-Wesley", PublishedDate: "2015-10-26", Quantity: 3,
	})
	s.addBook(t, dto.AddBookRequest{
		ISBN: "9781491941195", Title: "Concurrency in Go", Author: "Cox-Buday",
		Publisher: "O'Reilly", PublishedDate: "2017-07-19", Quantity: 1,
	})

	_, env := s.do(t, http.MethodPost, "/api/v1/checkout/9780134190440", checkoutBody())
	require.Equal(t, 0, env.Code)

	t.Run("无条件返回全部", func(t *testing.T) {
		_, env := s.do(t, http.MethodGet, "/api/v1/books", nil)
		require.Equal(t, 0, env.Code)

		var resp appcatalog.SearchBooksResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, 2, resp.Total)
		require.Len(t, resp.Borrowed, 1)
		assert.Equal(t, "john@example.com", resp.Borrowed[0].BorrowerEmail)
	})

	t.Run("简单检索", func(t *testing.T) {
		_, env := s.do(t, http.MethodGet, "/api/v1/books?q=programming&published_date_start=2015-01-01", nil)
		require.Equal(t, 0, env.Code)

		var resp appcatalog.SearchBooksResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		require.Len(t, resp.Books, 1)
		assert.Equal(t, gopl.ID, resp.Books[0].ID)
	})

	t.Run("日期格式错误", func(t *testing.T) {
		_, env := s.do(t, http.MethodGet, "/api/v1/books?published_date_start=26/10/2015", nil)
		assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)
	})

	t.Run("高级检索", func(t *testing.T) {
		_, env := s.do(t, http.MethodPost, "/api/v1/books/search", dto.AdvancedSearchRequest{
			Clauses: []dto.SearchClause{
				{Field: "title", Operator: "icontains", Term: "go", Logic: "AND"},
				{Field: "publisher", Operator: "iexact", Term: "o'reilly", Logic: "NOT"},
			},
		})
		require.Equal(t, 0, env.Code, env.Message)

		var resp appcatalog.SearchBooksResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		require.Len(t, resp.Books, 1)
		assert.Equal(t, "9780134190440", resp.Books[0].ISBN)
	})

	t.Run("空的高级检索", func(t *testing.T) {
		_, env := s.do(t, http.MethodPost, "/api/v1/books/search", dto.AdvancedSearchRequest{})
		require.Equal(t, 0, env.Code)

		var resp appcatalog.SearchBooksResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Empty(t, resp.Books)
	})

	t.Run("详情", func(t *testing.T) {
		_, env := s.do(t, http.MethodGet, "/api/v1/books/1", nil)
		require.Equal(t, 0, env.Code)

		var page appcatalog.BookPage
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Equal(t, 2, page.Book.AvailableQuantity)
		require.Len(t, page.Borrowed, 1)
	})

	t.Run("详情不存在", func(t *testing.T) {
		_, env := s.do(t, http.MethodGet, "/api/v1/books/abc", nil)
		assert.Equal(t, apperrors.ErrCodeBookNotFound, env.Code)

		_, env = s.do(t, http.MethodGet, "/api/v1/books/999", nil)
		assert.Equal(t, apperrors.ErrCodeBookNotFound, env.Code)
	})
}

func TestAuditInventory(t *testing.T) {
	s := newTestServer(t)
	s.addBook(t, dto.AddBookRequest{ISBN: "1234567890123", Title: "Go", Quantity: 2})

	// 绕过借还直接写入不一致的数量
	broken := &catalog.Book{ISBN: "2222222222222", Title: "Broken", PublishedDate: catalog.DefaultPublishedDate, TotalQuantity: 2, AvailableQuantity: 1}
	require.NoError(t, s.store.Books().Create(context.Background(), broken))

	_, env := s.do(t, http.MethodGet, "/api/v1/inventory/audit", nil)
	require.Equal(t, 0, env.Code)

	var resp appcatalog.VerifyInventoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 2, resp.Checked)
	require.Len(t, resp.Discrepancies, 1)
	assert.Equal(t, broken.ID, resp.Discrepancies[0].Book.ID)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/ping", nil)

	w, _ := s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestCORS(t *testing.T) {
	s := newTestServerWith(t, Options{Mode: gin.TestMode, AllowOrigins: []string{"https://desk.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/checkin", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, "https://desk.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w, _ = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "未启用指标时不注册/metrics")
}
