//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 教学说明：
// 1. Wire在编译期生成代码(wire_gen.go),零运行时开销
// 2. 修改Provider后运行 `wire gen ./cmd/api` 重新生成
//
// 核心概念：
// - Provider: 提供依赖的构造函数(如mysql.NewTxManager)
// - Injector: 声明最终要构造的目标类型(*App)
// - 带cleanup的Provider按相反顺序清理

package main

import (
	"github.com/google/wire"

	appcatalog "github.com/xiebiao/circulation/internal/application/catalog"
	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/infrastructure/config"
	"github.com/xiebiao/circulation/internal/interface/http/handler"
)

// storageSet 存储:仓储和事务管理器共享同一个Storage
var storageSet = wire.NewSet(
	provideStorage,
	provideBookRepository,
	provideLoanRepository,
	provideTransactor,
)

// observerSet 借还事件的订阅者
var observerSet = wire.NewSet(
	provideBookCache,
	providePageCache,
	provideEventPublisher,
	provideHub,
	provideObserver,
)

// domainSet 领域服务
var domainSet = wire.NewSet(
	catalog.NewService,
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	provideCirculationConfig,
	circulation.NewCheckoutUseCase,
	circulation.NewCheckinUseCase,
	appcatalog.NewAddBookUseCase,
	appcatalog.NewSearchBooksUseCase,
	appcatalog.NewGetBookUseCase,
	appcatalog.NewVerifyInventoryUseCase,
)

// interfaceSet HTTP与gRPC
var interfaceSet = wire.NewSet(
	handler.NewCirculationHandler,
	handler.NewCatalogHandler,
	provideRouter,
	provideGRPCServer,
)

// InitializeApp 初始化整个应用
// 配置和日志在调用前已就绪;返回的cleanup关闭缓存、消息队列、WebSocket和数据库
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		storageSet,
		observerSet,
		domainSet,
		applicationSet,
		interfaceSet,
		newApp,
	)
	return nil, nil, nil
}
