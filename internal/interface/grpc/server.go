// Package grpc 运维用gRPC服务:标准健康检查协议和反射
// 业务接口只走HTTP,这里供负载均衡器和grpcurl使用
package grpc

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName 健康检查中的服务名,空字符串代表整个进程
const ServiceName = "library.circulation"

// Probe 依赖检查,返回error表示依赖不可用
type Probe func(ctx context.Context) error

// Server gRPC服务器
//
// 教学要点：
// 1. 实现grpc.health.v1,k8s和负载均衡器可以直接探测
// 2. 定期执行探针(数据库、Redis),任意一个失败即NOT_SERVING
// 3. 注册反射服务,便于grpcurl调试
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server

	mu     sync.Mutex
	probes map[string]Probe
}

// NewServer 创建gRPC服务器,初始状态为SERVING
func NewServer() *Server {
	s := &Server{
		grpcServer: grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor)),
		health:     health.NewServer(),
		probes:     make(map[string]Probe),
	}

	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	reflection.Register(s.grpcServer)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// AddProbe 注册依赖探针,name只用于日志
func (s *Server) AddProbe(name string, p Probe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probes[name] = p
}

// Check 执行一轮探针并更新健康状态,返回是否全部通过
func (s *Server) Check(ctx context.Context) bool {
	s.mu.Lock()
	probes := make(map[string]Probe, len(s.probes))
	for name, p := range s.probes {
		probes[name] = p
	}
	s.mu.Unlock()

	ok := true
	for name, p := range probes {
		if err := p(ctx); err != nil {
			ok = false
			slog.WarnContext(ctx, "health probe failed", "probe", name, "error", err)
		}
	}

	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	return ok
}

// Watch 每隔interval执行一次Check,直到ctx结束
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, interval)
			s.Check(probeCtx)
			cancel()
		}
	}
}

// Serve 在lis上提供服务,阻塞直到Stop
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("grpc server listening", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// Stop 先把状态置为NOT_SERVING,再等待进行中的调用完成
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	slog.DebugContext(ctx, "grpc request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"latency", time.Since(start),
	)
	return resp, err
}
