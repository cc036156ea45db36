package messaging

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/pkg/circuitbreaker"
	"github.com/xiebiao/circulation/pkg/mq"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	msgs []interface{}
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	p.keys = append(p.keys, routingKey)
	p.msgs = append(p.msgs, message)
	return nil
}

func sampleEvent(t circulation.EventType) circulation.Event {
	return circulation.Event{
		ID:                uuid.New(),
		Type:              t,
		BookID:            1,
		ISBN:              "1234567890123",
		LoanID:            9,
		AvailableQuantity: 2,
		TotalQuantity:     3,
		BorrowerEmail:     "john@example.com",
		OccurredAt:        time.Date(2024, 5, 6, 9, 30, 15, 0, time.UTC),
	}
}

func TestEventPublisher_RoutingKeys(t *testing.T) {
	pub := &recordingPublisher{}
	ep := NewEventPublisher(pub, circuitbreaker.NewCircuitBreaker("events-ok", circuitbreaker.Config{}), time.Second)

	// 请求ctx已取消也照常发布
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ep.OnCirculation(ctx, sampleEvent(circulation.EventCheckedOut))
	ep.OnCirculation(context.Background(), sampleEvent(circulation.EventCheckedIn))

	assert.Equal(t, []string{"loan.checked_out", "loan.checked_in"}, pub.keys)
	assert.Equal(t, circulation.EventCheckedOut, pub.msgs[0].(circulation.Event).Type)
}

func TestEventPublisher_BreakerOpens(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	breaker := circuitbreaker.NewCircuitBreaker("events-down", circuitbreaker.Config{
		Timeout:     time.Minute,
		ReadyToTrip: func(c circuitbreaker.Counts) bool { return c.ConsecutiveFailures >= 2 },
	})
	ep := NewEventPublisher(pub, breaker, time.Second)

	for i := 0; i < 3; i++ {
		ep.OnCirculation(context.Background(), sampleEvent(circulation.EventCheckedOut))
	}
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
	assert.Empty(t, pub.keys)
}

func TestAuditHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := AuditHandler(&buf)

	body, err := mq.Encode(sampleEvent(circulation.EventCheckedIn))
	require.NoError(t, err)
	require.NoError(t, handler("loan.checked_in", body))

	line := buf.String()
	assert.Contains(t, line, "2024-05-06 09:30:15")
	assert.Contains(t, line, "checked_in")
	assert.Contains(t, line, "isbn=1234567890123")
	assert.Contains(t, line, "available=2/3")

	assert.Error(t, handler("loan.checked_in", []byte("not json")))
}
