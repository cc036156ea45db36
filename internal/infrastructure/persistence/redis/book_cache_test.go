package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcatalog "github.com/xiebiao/circulation/internal/application/catalog"
	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/infrastructure/config"
	"github.com/xiebiao/circulation/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/circulation/pkg/metrics"
)

func newTestCache(t *testing.T, ttl time.Duration) (*BookCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBookCache(client, ttl), mr
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Server().Addr().Port

	client, err := NewClient(context.Background(), config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = NewClient(context.Background(), config.RedisConfig{Host: host, Port: port, DialTimeout: 100 * time.Millisecond})
	assert.Error(t, err)
}

func TestBookCache_GetSet(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	missesBefore := testutil.ToFloat64(metrics.CacheRequestsTotal.WithLabelValues(cacheName, "miss"))
	_, ok := cache.GetPage(ctx, 7)
	assert.False(t, ok)
	assert.Equal(t, missesBefore+1, testutil.ToFloat64(metrics.CacheRequestsTotal.WithLabelValues(cacheName, "miss")))

	page := &appcatalog.BookPage{
		Book:     appcatalog.BookView{ID: 7, ISBN: "1234567890123", Title: "Cached", TotalQuantity: 2, AvailableQuantity: 1},
		Borrowed: []appcatalog.LoanView{{ID: 1, BookID: 7, BorrowerEmail: "john@example.com", BorrowedTime: "09:30:15.000000"}},
	}
	cache.SetPage(ctx, page)
	assert.True(t, mr.Exists("library:book:7"))
	assert.Equal(t, time.Minute, mr.TTL("library:book:7"))

	got, ok := cache.GetPage(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, page, got)

	mr.FastForward(2 * time.Minute)
	_, ok = cache.GetPage(ctx, 7)
	assert.False(t, ok, "过期后未命中")
}

func TestBookCache_CorruptedEntry(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set("library:book:3", "{not json"))

	_, ok := cache.GetPage(context.Background(), 3)
	assert.False(t, ok)
	assert.False(t, mr.Exists("library:book:3"), "损坏的条目被删除")
}

func TestBookCache_Unavailable(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	mr.Close()

	assert.Error(t, cache.Ping(context.Background()))
	_, ok := cache.GetPage(context.Background(), 1)
	assert.False(t, ok)
	cache.SetPage(context.Background(), &appcatalog.BookPage{Book: appcatalog.BookView{ID: 1}})
	assert.Error(t, cache.Invalidate(context.Background(), 1))
}

// 借还事件使详情页缓存失效,之后的查询看到最新在架数量
func TestBookCache_InvalidatedByCirculation(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	store := memory.NewStore()
	b := &catalog.Book{ISBN: "1234567890123", Title: "Cached", PublishedDate: catalog.DefaultPublishedDate, TotalQuantity: 2, AvailableQuantity: 2}
	require.NoError(t, store.Books().Create(ctx, b))

	getBook := appcatalog.NewGetBookUseCase(catalog.NewService(store.Books()), store.Loans(), cache)
	checkout := circulation.NewCheckoutUseCase(store.Books(), store.Loans(), store, cache, circulation.Config{})

	page, err := getBook.Execute(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Book.AvailableQuantity)
	require.True(t, mr.Exists("library:book:1"))

	_, err = checkout.Execute(ctx, circulation.CheckoutRequest{
		ISBN: "1234567890123", FirstName: "John", LastName: "Doe", Email: "john@example.com",
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("library:book:1"))

	page, err = getBook.Execute(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Book.AvailableQuantity)
	require.Len(t, page.Borrowed, 1)
	assert.Equal(t, "john@example.com", page.Borrowed[0].BorrowerEmail)
}
