//go:build !wireinject
// +build !wireinject

// 与wire.go的Provider集合保持一致;
// 执行 `wire gen ./cmd/api` 会用生成的代码覆盖本文件

package main

import (
	"github.com/xiebiao/circulation/internal/application/catalog"
	"github.com/xiebiao/circulation/internal/application/circulation"
	catalog2 "github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/infrastructure/config"
	"github.com/xiebiao/circulation/internal/interface/http/handler"
)

// Injectors from wire.go:

// InitializeApp 初始化整个应用
// 配置和日志在调用前已就绪;返回的cleanup关闭缓存、消息队列、WebSocket和数据库
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	storage, cleanup, err := provideStorage(cfg)
	if err != nil {
		return nil, nil, err
	}
	repository := provideBookRepository(storage)
	loanRepository := provideLoanRepository(storage)
	transactor := provideTransactor(storage)
	bookCache, cleanup2, err := provideBookCache(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	hub, cleanup3 := provideHub(cfg)
	eventPublisher, cleanup4, err := provideEventPublisher(cfg)
	if err != nil {
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	observer := provideObserver(bookCache, hub, eventPublisher)
	circulationConfig := provideCirculationConfig(cfg)
	checkoutUseCase := circulation.NewCheckoutUseCase(repository, loanRepository, transactor, observer, circulationConfig)
	checkinUseCase := circulation.NewCheckinUseCase(repository, loanRepository, transactor, observer, circulationConfig)
	circulationHandler := handler.NewCirculationHandler(checkoutUseCase, checkinUseCase)
	service := catalog2.NewService(repository)
	addBookUseCase := catalog.NewAddBookUseCase(service)
	searchBooksUseCase := catalog.NewSearchBooksUseCase(repository, loanRepository)
	pageCache := providePageCache(bookCache)
	getBookUseCase := catalog.NewGetBookUseCase(service, loanRepository, pageCache)
	verifyInventoryUseCase := catalog.NewVerifyInventoryUseCase(repository, loanRepository)
	catalogHandler := handler.NewCatalogHandler(addBookUseCase, searchBooksUseCase, getBookUseCase, verifyInventoryUseCase)
	engine := provideRouter(cfg, circulationHandler, catalogHandler, hub)
	server := provideGRPCServer(cfg, storage)
	app := newApp(cfg, engine, hub, server, storage)
	return app, func() {
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
	}, nil
}
