package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	appcatalog "github.com/xiebiao/circulation/internal/application/catalog"
	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/pkg/metrics"
)

const cacheName = "book_page"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BookCache 图书详情页缓存
//
// 教学要点：
// 1. Cache-Aside：先查缓存，未命中再查数据库并回填
// 2. 借还改变了在架数量和未归还列表,事务提交后删除缓存(而不是更新),
//    下次查询时重新加载
// 3. 缓存故障只记日志和指标,按未命中处理,不影响请求
type BookCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBookCache 创建详情页缓存
func NewBookCache(client *redis.Client, ttl time.Duration) *BookCache {
	metrics.InitMetrics()
	return &BookCache{client: client, ttl: ttl}
}

// GetPage 实现catalog.PageCache
func (c *BookCache) GetPage(ctx context.Context, bookID uint) (*appcatalog.BookPage, bool) {
	val, err := c.client.Get(ctx, pageKey(bookID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCache(cacheName, "miss")
			return nil, false
		}
		metrics.RecordCache(cacheName, "error")
		slog.WarnContext(ctx, "book cache get failed", "book_id", bookID, "error", err)
		return nil, false
	}

	var page appcatalog.BookPage
	if err := json.Unmarshal(val, &page); err != nil {
		metrics.RecordCache(cacheName, "error")
		slog.WarnContext(ctx, "book cache entry corrupted", "book_id", bookID, "error", err)
		_ = c.client.Del(ctx, pageKey(bookID)).Err()
		return nil, false
	}

	metrics.RecordCache(cacheName, "hit")
	return &page, true
}

// SetPage 实现catalog.PageCache
func (c *BookCache) SetPage(ctx context.Context, page *appcatalog.BookPage) {
	val, err := json.Marshal(page)
	if err != nil {
		slog.WarnContext(ctx, "book cache encode failed", "book_id", page.Book.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, pageKey(page.Book.ID), val, c.ttl).Err(); err != nil {
		metrics.RecordCache(cacheName, "error")
		slog.WarnContext(ctx, "book cache set failed", "book_id", page.Book.ID, "error", err)
	}
}

// Invalidate 删除某本书的缓存
func (c *BookCache) Invalidate(ctx context.Context, bookID uint) error {
	if err := c.client.Del(ctx, pageKey(bookID)).Err(); err != nil {
		return fmt.Errorf("删除缓存失败: %w", err)
	}
	return nil
}

// OnCirculation 实现circulation.Observer,借还提交后删除缓存
func (c *BookCache) OnCirculation(ctx context.Context, e circulation.Event) {
	if err := c.Invalidate(ctx, e.BookID); err != nil {
		metrics.RecordCache(cacheName, "error")
		slog.WarnContext(ctx, "book cache invalidation failed",
			"book_id", e.BookID, "event", e.Type, "error", err)
	}
}

// Ping 健康检查探针
func (c *BookCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭底层连接
func (c *BookCache) Close() error {
	return c.client.Close()
}

func pageKey(bookID uint) string {
	return fmt.Sprintf("library:book:%d", bookID)
}
