// Package messaging 把借还事件发布到RabbitMQ
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/pkg/circuitbreaker"
)

// RoutingKeyPrefix 路由键前缀,完整路由键为 loan.checked_out / loan.checked_in
const RoutingKeyPrefix = "loan."

// Publisher 消息发布接口(pkg/mq.Publisher实现)
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// EventPublisher 借还事件发布者,实现circulation.Observer
// 1. 事务已经提交,发布失败只记日志,不回滚也不重试
// 2. 熔断器打开期间直接跳过发布,借还请求不会卡在Broker超时上
// 3. 发布使用独立的超时,不受请求ctx取消影响
type EventPublisher struct {
	publisher Publisher
	breaker   *circuitbreaker.CircuitBreaker
	timeout   time.Duration
}

// NewEventPublisher 创建事件发布者
func NewEventPublisher(publisher Publisher, breaker *circuitbreaker.CircuitBreaker, timeout time.Duration) *EventPublisher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &EventPublisher{publisher: publisher, breaker: breaker, timeout: timeout}
}

// RoutingKey 事件类型对应的路由键
func RoutingKey(t circulation.EventType) string {
	return RoutingKeyPrefix + string(t)
}

// OnCirculation 实现circulation.Observer
func (p *EventPublisher) OnCirculation(ctx context.Context, e circulation.Event) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	key := RoutingKey(e.Type)
	err := p.breaker.ExecuteContext(pubCtx, func(ctx context.Context) error {
		return p.publisher.Publish(ctx, key, e)
	})
	switch {
	case err == nil:
		slog.DebugContext(ctx, "circulation event published", "routing_key", key, "event_id", e.ID)
	case errors.Is(err, circuitbreaker.ErrOpenState):
		slog.WarnContext(ctx, "circulation event dropped, breaker open",
			"routing_key", key, "event_id", e.ID, "breaker", p.breaker.Name())
	default:
		slog.ErrorContext(ctx, "circulation event publish failed",
			"routing_key", key, "event_id", e.ID, "error", err)
	}
}
