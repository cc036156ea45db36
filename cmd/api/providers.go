package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	appcatalog "github.com/xiebiao/circulation/internal/application/catalog"
	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
	"github.com/xiebiao/circulation/internal/infrastructure/config"
	"github.com/xiebiao/circulation/internal/infrastructure/messaging"
	"github.com/xiebiao/circulation/internal/infrastructure/persistence"
	"github.com/xiebiao/circulation/internal/infrastructure/persistence/redis"
	grpcserver "github.com/xiebiao/circulation/internal/interface/grpc"
	"github.com/xiebiao/circulation/internal/interface/http/handler"
	"github.com/xiebiao/circulation/internal/interface/http/router"
	"github.com/xiebiao/circulation/internal/interface/ws"
	"github.com/xiebiao/circulation/pkg/circuitbreaker"
	"github.com/xiebiao/circulation/pkg/mq"
)

// App 组装完成的应用
type App struct {
	Config  *config.Config
	Engine  *gin.Engine
	Hub     *ws.Hub
	GRPC    *grpcserver.Server // grpc.enabled=false时为nil
	Storage *persistence.Storage
}

func newApp(cfg *config.Config, engine *gin.Engine, hub *ws.Hub, grpcServer *grpcserver.Server, storage *persistence.Storage) *App {
	return &App{Config: cfg, Engine: engine, Hub: hub, GRPC: grpcServer, Storage: storage}
}

// ========================================
// 存储
// ========================================

func provideStorage(cfg *config.Config) (*persistence.Storage, func(), error) {
	s, err := persistence.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := s.Close(); err != nil {
			slog.Warn("close storage failed", "error", err)
		}
	}
	return s, cleanup, nil
}

func provideBookRepository(s *persistence.Storage) catalog.Repository { return s.Books }

func provideLoanRepository(s *persistence.Storage) loan.Repository { return s.Loans }

func provideTransactor(s *persistence.Storage) circulation.Transactor { return s.TxManager }

// ========================================
// 可选组件:未启用时返回nil
// ========================================

func provideBookCache(cfg *config.Config) (*redis.BookCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	cache := redis.NewBookCache(client, cfg.Redis.BookTTL)
	return cache, func() { _ = cache.Close() }, nil
}

// providePageCache 避免把nil指针装进接口
func providePageCache(cache *redis.BookCache) appcatalog.PageCache {
	if cache == nil {
		return nil
	}
	return cache
}

func provideEventPublisher(cfg *config.Config) (*messaging.EventPublisher, func(), error) {
	if !cfg.MQ.Enabled {
		return nil, func() {}, nil
	}
	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType)
	if err != nil {
		return nil, nil, fmt.Errorf("连接消息队列失败: %w", err)
	}

	breaker := circuitbreaker.NewCircuitBreaker("mq-publisher", circuitbreaker.DefaultConfig())
	breaker.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	})

	return messaging.NewEventPublisher(publisher, breaker, 3*time.Second), func() { _ = publisher.Close() }, nil
}

func provideHub(cfg *config.Config) (*ws.Hub, func()) {
	hub := ws.NewHub(cfg.Server.AllowOrigins...)
	return hub, hub.Close
}

// provideObserver 借还提交后依次:缓存失效 → WebSocket推送 → 消息队列
func provideObserver(cache *redis.BookCache, hub *ws.Hub, publisher *messaging.EventPublisher) circulation.Observer {
	n := circulation.NewNotifier()
	if cache != nil {
		n.Subscribe(cache)
	}
	n.Subscribe(hub)
	if publisher != nil {
		n.Subscribe(publisher)
	}
	return n
}

func provideCirculationConfig(cfg *config.Config) circulation.Config {
	return circulation.Config{LockTimeout: cfg.Circulation.LockTimeout}
}

// ========================================
// 接口层
// ========================================

func provideRouter(
	cfg *config.Config,
	circulationHandler *handler.CirculationHandler,
	catalogHandler *handler.CatalogHandler,
	hub *ws.Hub,
) *gin.Engine {
	return router.New(router.Options{
		Mode:           cfg.Server.Mode,
		AllowOrigins:   cfg.Server.AllowOrigins,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		Swagger:        cfg.Server.Mode != gin.ReleaseMode,
	}, circulationHandler, catalogHandler, hub)
}

// provideGRPCServer 只探测数据库;缓存故障按未命中处理,不影响服务状态
func provideGRPCServer(cfg *config.Config, storage *persistence.Storage) *grpcserver.Server {
	if !cfg.GRPC.Enabled {
		return nil
	}
	s := grpcserver.NewServer()
	s.AddProbe("storage", storage.Ping)
	return s
}
