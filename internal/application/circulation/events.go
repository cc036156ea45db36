package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/domain/loan"
)

// EventType 借还事件类型
type EventType string

const (
	EventCheckedOut EventType = "checked_out"
	EventCheckedIn  EventType = "checked_in"
)

// Event 借还成功(已提交)后发出的事件
type Event struct {
	ID                uuid.UUID `json:"id"`
	Type              EventType `json:"type"`
	BookID            uint      `json:"book_id"`
	ISBN              string    `json:"isbn"`
	Title             string    `json:"title"`
	LoanID            uint      `json:"loan_id"`
	AvailableQuantity int       `json:"available_quantity"`
	TotalQuantity     int       `json:"total_quantity"`
	BorrowerEmail     string    `json:"borrower_email"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func newEvent(t EventType, b *catalog.Book, r *loan.Record, at time.Time) Event {
	return Event{
		ID:                uuid.New(),
		Type:              t,
		BookID:            b.ID,
		ISBN:              b.ISBN,
		Title:             b.Title,
		LoanID:            r.ID,
		AvailableQuantity: b.AvailableQuantity,
		TotalQuantity:     b.TotalQuantity,
		BorrowerEmail:     r.BorrowerEmail,
		OccurredAt:        at,
	}
}

// Observer 事件订阅者(缓存失效、WebSocket推送、消息队列)
// 事务已提交,订阅者的失败只能自己处理,不影响借还结果
type Observer interface {
	OnCirculation(ctx context.Context, e Event)
}

// ObserverFunc 函数适配器
type ObserverFunc func(ctx context.Context, e Event)

func (f ObserverFunc) OnCirculation(ctx context.Context, e Event) { f(ctx, e) }

// Notifier 按注册顺序同步分发事件
type Notifier struct {
	observers []Observer
}

// NewNotifier 创建分发器,nil订阅者被忽略
func NewNotifier(observers ...Observer) *Notifier {
	n := &Notifier{}
	for _, o := range observers {
		n.Subscribe(o)
	}
	return n
}

// Subscribe 追加订阅者(只在启动阶段调用)
func (n *Notifier) Subscribe(o Observer) {
	if o != nil {
		n.observers = append(n.observers, o)
	}
}

// OnCirculation 实现Observer,Notifier之间可以嵌套
func (n *Notifier) OnCirculation(ctx context.Context, e Event) {
	if n == nil {
		return
	}
	for _, o := range n.observers {
		o.OnCirculation(ctx, e)
	}
}
