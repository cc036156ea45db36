// Package metrics 基于Prometheus的指标
//
// 指标分四组:
//   - HTTP:请求数、耗时、处理中的请求数
//   - 借还:按操作和结果计数,耗时分布(含等锁时间)
//   - 缓存、熔断器、消息队列:周边组件的健康状况
//   - WebSocket:在线订阅数
//
// 命名规范:Counter以_total结尾,Histogram以单位结尾(_seconds)
//
// 标签只用有限取值(method、operation、result),不要用ISBN或邮箱做标签
//
//	metrics.InitMetrics()
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
//	start := time.Now()
//	_, err := checkout.Execute(ctx, req)
//	metrics.RecordCirculation(metrics.OpCheckout, err, time.Since(start))
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/xiebiao/circulation/pkg/errors"
)

// 借还操作名(operation标签)
const (
	OpCheckout = "checkout"
	OpCheckin  = "checkin"
)

var (
	initOnce sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数
	// 标签:method、path(路由模板)、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// 借还指标

	// CirculationTotal 借还次数
	// 标签:operation(checkout/checkin)、result(success或错误种类)
	CirculationTotal *prometheus.CounterVec

	// CirculationDuration 借还耗时,包含等待行锁的时间
	CirculationDuration *prometheus.HistogramVec

	// CirculationInProgress 正在进行(含等锁)的借还数
	CirculationInProgress *prometheus.GaugeVec

	// 缓存指标

	// CacheRequestsTotal 缓存访问
	// 标签:cache、result(hit/miss/error)
	CacheRequestsTotal *prometheus.CounterVec

	// 熔断器指标

	// CircuitBreakerState 熔断器状态(0=CLOSED, 1=OPEN, 2=HALF_OPEN)
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数
	// 标签:name、result(success/failure/rejected)
	CircuitBreakerRequests *prometheus.CounterVec

	// 消息队列指标

	// MessagesPublishedTotal 消息发布总数
	// 标签:exchange、routing_key、result(success/failure)
	MessagesPublishedTotal *prometheus.CounterVec

	// MessagesConsumedTotal 消息消费总数
	// 标签:queue、result(success/failure)
	MessagesConsumedTotal *prometheus.CounterVec

	// MessageProcessingDuration 消息处理耗时
	MessageProcessingDuration prometheus.Histogram

	// WebSocketClients 在线的库存推送订阅数
	WebSocketClients prometheus.Gauge
)

// InitMetrics 注册所有指标到默认Registry,可重复调用
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时(秒)",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	CirculationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circulation_operations_total",
			Help: "借还操作总数",
		},
		[]string{"operation", "result"},
	)

	// 热门书排队等锁时耗时会明显拉长,桶上限覆盖到锁超时
	CirculationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "circulation_operation_duration_seconds",
			Help:    "借还操作耗时(秒)",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"operation"},
	)

	CirculationInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circulation_operations_in_progress",
			Help: "正在进行的借还操作数",
		},
		[]string{"operation"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "缓存访问总数",
		},
		[]string{"cache", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态(0=CLOSED, 1=OPEN, 2=HALF_OPEN)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"exchange", "routing_key", "result"},
	)

	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_consumed_total",
			Help: "消息消费总数",
		},
		[]string{"queue", "result"},
	)

	MessageProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "message_processing_duration_seconds",
			Help:    "消息处理耗时(秒)",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "在线的库存推送订阅数",
		},
	)
}

// ResultOf 把错误映射为有限的result标签值
func ResultOf(err error) string {
	if err == nil {
		return "success"
	}
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeInvalidParams, apperrors.ErrCodeBindError:
		return "invalid"
	case apperrors.ErrCodeBookNotFound, apperrors.ErrCodeNotFound:
		return "not_found"
	case apperrors.ErrCodeNoCopiesAvailable:
		return "no_copies"
	case apperrors.ErrCodeNotCheckedOut:
		return "not_checked_out"
	case apperrors.ErrCodeNoOpenRecord:
		return "no_open_record"
	case apperrors.ErrCodeLockTimeout:
		return "lock_timeout"
	case apperrors.ErrCodeTransaction:
		return "transaction_error"
	}
	return "error"
}

// TrackCirculation 标记一次借还开始,返回的函数在结束时调用
//
//	done := metrics.TrackCirculation(metrics.OpCheckout)
//	_, err := uc.Execute(ctx, req)
//	done(err)
func TrackCirculation(operation string) func(err error) {
	InitMetrics()
	start := time.Now()
	CirculationInProgress.WithLabelValues(operation).Inc()
	return func(err error) {
		CirculationInProgress.WithLabelValues(operation).Dec()
		RecordCirculation(operation, err, time.Since(start))
	}
}

// RecordCirculation 记录一次借还的结果和耗时
func RecordCirculation(operation string, err error, d time.Duration) {
	InitMetrics()
	CirculationTotal.WithLabelValues(operation, ResultOf(err)).Inc()
	CirculationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCache 记录一次缓存访问(hit/miss/error)
func RecordCache(cache, result string) {
	InitMetrics()
	CacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

// IncCounterVec 递增CounterVec(带标签)
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// IncGauge 递增Gauge
func IncGauge(gauge prometheus.Gauge) {
	gauge.Inc()
}

// DecGauge 递减Gauge
func DecGauge(gauge prometheus.Gauge) {
	gauge.Dec()
}

// SetGaugeVec 设置GaugeVec值(带标签)
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

// ObserveHistogram 记录Histogram观测值
func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	histogram.Observe(value)
}

// ObserveHistogramVec 记录HistogramVec观测值(带标签)
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}
