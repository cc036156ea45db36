package main

import (
	"context"
	"log/slog"
	"time"

	appcatalog "github.com/xiebiao/circulation/internal/application/catalog"
	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/infrastructure/messaging"
	"github.com/xiebiao/circulation/internal/infrastructure/persistence"
	"github.com/xiebiao/circulation/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/circulation/pkg/circuitbreaker"
	"github.com/xiebiao/circulation/pkg/mq"
)

// services 命令行直接调用用例,与HTTP服务共享同一个数据库
// 启用了Redis/消息队列时同样失效缓存、发布事件,服务端看到的状态保持一致
type services struct {
	storage  *persistence.Storage
	checkout *circulation.CheckoutUseCase
	checkin  *circulation.CheckinUseCase
	addBook  *appcatalog.AddBookUseCase
	search   *appcatalog.SearchBooksUseCase
	getBook  *appcatalog.GetBookUseCase
	verify   *appcatalog.VerifyInventoryUseCase
}

func (c *cli) open(ctx context.Context) (*services, func(), error) {
	storage, err := persistence.Open(c.cfg)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){func() { _ = storage.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	notifier := circulation.NewNotifier()
	var pageCache appcatalog.PageCache

	if c.cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, c.cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, book cache disabled", "error", err)
		} else {
			cache := redis.NewBookCache(client, c.cfg.Redis.BookTTL)
			closers = append(closers, func() { _ = cache.Close() })
			notifier.Subscribe(cache)
			pageCache = cache
		}
	}

	if c.cfg.MQ.Enabled {
		publisher, err := mq.NewPublisher(c.cfg.MQ.URL, c.cfg.MQ.Exchange, c.cfg.MQ.ExchangeType)
		if err != nil {
			slog.Warn("message queue unavailable, events not published", "error", err)
		} else {
			closers = append(closers, func() { _ = publisher.Close() })
			breaker := circuitbreaker.NewCircuitBreaker("mq-publisher", circuitbreaker.DefaultConfig())
			notifier.Subscribe(messaging.NewEventPublisher(publisher, breaker, 3*time.Second))
		}
	}

	circCfg := circulation.Config{LockTimeout: c.cfg.Circulation.LockTimeout}
	service := catalog.NewService(storage.Books)

	return &services{
		storage:  storage,
		checkout: circulation.NewCheckoutUseCase(storage.Books, storage.Loans, storage.TxManager, notifier, circCfg),
		checkin:  circulation.NewCheckinUseCase(storage.Books, storage.Loans, storage.TxManager, notifier, circCfg),
		addBook:  appcatalog.NewAddBookUseCase(service),
		search:   appcatalog.NewSearchBooksUseCase(storage.Books, storage.Loans),
		getBook:  appcatalog.NewGetBookUseCase(service, storage.Loans, pageCache),
		verify:   appcatalog.NewVerifyInventoryUseCase(storage.Books, storage.Loans),
	}, cleanup, nil
}
