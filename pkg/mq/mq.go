// Package mq RabbitMQ发布/消费封装
//
// 借还成功后发布事件,路由键形如 loan.checked_out / loan.checked_in
// 使用topic交换机,消费方按 loan.* 订阅
//
//	publisher, _ := mq.NewPublisher(url, "library.circulation", "topic")
//	publisher.Publish(ctx, "loan.checked_out", event)
//
//	consumer, _ := mq.NewConsumer(url, "library.circulation", "topic", "audit", []string{"loan.*"})
//	consumer.Consume(ctx, func(routingKey string, body []byte) error { ... })
package mq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xiebiao/circulation/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Publisher 消息发布者
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewPublisher 连接RabbitMQ并声明持久化Exchange
func NewPublisher(url, exchange, exchangeType string) (*Publisher, error) {
	conn, channel, err := dial(url, exchange, exchangeType)
	if err != nil {
		return nil, err
	}

	slog.Info("消息发布者已创建", "exchange", exchange, "type", exchangeType)

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

// Publish 以JSON发布持久化消息
func (p *Publisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	body, err := Encode(message)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)

	metrics.InitMetrics()
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.MessagesPublishedTotal.WithLabelValues(p.exchange, routingKey, result).Inc()

	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}
	slog.Debug("消息已发布", "routing_key", routingKey, "bytes", len(body))
	return nil
}

// Close 关闭Channel和连接
func (p *Publisher) Close() error {
	return closeAll(p.channel, p.conn)
}

// Encode 消息序列化
func Encode(message interface{}) ([]byte, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("消息序列化失败: %w", err)
	}
	return body, nil
}

// Decode 消息反序列化
func Decode(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("消息反序列化失败: %w", err)
	}
	return nil
}

// Handler 消息处理函数,返回error时消息重新入队
type Handler func(routingKey string, body []byte) error

// Consumer 消息消费者
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewConsumer 声明Exchange和持久化Queue,并按routingKeys绑定(支持通配符)
func NewConsumer(url, exchange, exchangeType, queue string, routingKeys []string) (*Consumer, error) {
	conn, channel, err := dial(url, exchange, exchangeType)
	if err != nil {
		return nil, err
	}

	q, err := channel.QueueDeclare(
		queue,
		true,  // Durable
		false, // AutoDelete
		false, // Exclusive
		false, // NoWait
		nil,
	)
	if err != nil {
		_ = closeAll(channel, conn)
		return nil, fmt.Errorf("声明Queue失败: %w", err)
	}

	for _, routingKey := range routingKeys {
		if err := channel.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			_ = closeAll(channel, conn)
			return nil, fmt.Errorf("绑定Queue失败: %w", err)
		}
	}

	slog.Info("消息消费者已创建", "queue", q.Name, "routing_keys", routingKeys)

	return &Consumer{
		conn:    conn,
		channel: channel,
		queue:   q.Name,
	}, nil
}

// Consume 阻塞消费直到ctx取消
// 手动确认:处理成功Ack,失败Nack并重新入队;Qos=1保证逐条处理
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("设置Qos失败: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queue,
		"",    // Consumer标签(自动生成)
		false, // AutoAck
		false, // Exclusive
		false, // NoLocal
		false, // NoWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("开始消费失败: %w", err)
	}

	slog.Info("开始消费消息", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			slog.Info("消费者退出", "queue", c.queue)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("消息Channel已关闭")
			}
			handleDelivery(c.queue, msg, handler)
		}
	}
}

// handleDelivery 处理单条消息并确认
func handleDelivery(queue string, msg amqp.Delivery, handler Handler) {
	metrics.InitMetrics()
	start := time.Now()
	err := handler(msg.RoutingKey, msg.Body)
	metrics.MessageProcessingDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		slog.Warn("消息处理失败,重新入队", "queue", queue, "routing_key", msg.RoutingKey, "error", err)
		metrics.MessagesConsumedTotal.WithLabelValues(queue, "failure").Inc()
		_ = msg.Nack(false, true)
		return
	}
	metrics.MessagesConsumedTotal.WithLabelValues(queue, "success").Inc()
	_ = msg.Ack(false)
}

// Close 关闭Channel和连接
func (c *Consumer) Close() error {
	return closeAll(c.channel, c.conn)
}

func dial(url, exchange, exchangeType string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		exchangeType,
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,
	)
	if err != nil {
		_ = closeAll(channel, conn)
		return nil, nil, fmt.Errorf("声明Exchange失败: %w", err)
	}
	return conn, channel, nil
}

func closeAll(channel *amqp.Channel, conn *amqp.Connection) error {
	if channel != nil {
		_ = channel.Close()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
