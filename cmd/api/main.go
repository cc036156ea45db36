package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiebiao/circulation/internal/infrastructure/config"
	"github.com/xiebiao/circulation/pkg/logger"
	"github.com/xiebiao/circulation/pkg/tracing"
)

// healthCheckInterval gRPC健康探针的执行间隔
const healthCheckInterval = 10 * time.Second

// @title           Library Circulation API
// @version         1.0
// @description     借还、检索与库存核对
// @host            localhost:8080
// @BasePath        /
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// run 启动流程:
// 配置 → 日志 → 链路追踪 → 依赖注入(存储、缓存、消息队列、用例、路由) → HTTP/gRPC → 优雅关闭
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	_, logCloser, err := logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"driver", cfg.Database.Driver,
		"redis", cfg.Redis.Enabled,
		"mq", cfg.MQ.Enabled,
		"lock_timeout", cfg.Circulation.LockTimeout,
	)

	if cfg.Tracing.Enabled {
		shutdownTracer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slog.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	app, cleanup, err := InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("初始化应用失败: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP服务器异常退出: %w", err)
		}
	}()

	if app.GRPC != nil {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
		if err != nil {
			return fmt.Errorf("监听gRPC端口失败: %w", err)
		}
		go func() {
			if err := app.GRPC.Serve(lis); err != nil {
				errCh <- fmt.Errorf("gRPC服务器异常退出: %w", err)
			}
		}()
		go app.GRPC.Watch(ctx, healthCheckInterval)
	}

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	// 优雅关闭:
	// 1. gRPC先置为NOT_SERVING,负载均衡器停止转发
	// 2. HTTP停止接受新连接,等待进行中的借还提交或回滚
	// 3. WebSocket连接已被劫持,不在Shutdown的等待范围内,单独关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if app.GRPC != nil {
		app.GRPC.Stop()
	}
	app.Hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP服务器关闭超时: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
