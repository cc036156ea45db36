package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/circulation/pkg/metrics"
)

var errBroker = errors.New("broker unavailable")

func tripAfter(n uint32) Config {
	return Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     50 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= n },
	}
}

func TestCircuitBreaker_ClosedState(t *testing.T) {
	cb := NewCircuitBreaker("closed", tripAfter(3))

	for i := 0; i < 5; i++ {
		require.NoError(t, cb.Execute(func() error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(5), cb.Counts().TotalSuccesses)

	// 成功打断连续失败
	_ = cb.Execute(func() error { return errBroker })
	_ = cb.Execute(func() error { return errBroker })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBroker })
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_OpensAndRejects(t *testing.T) {
	cb := NewCircuitBreaker("opens", tripAfter(3))

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errBroker }), errBroker)
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, float64(StateOpen), testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("opens")))

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpenState)
	assert.False(t, called, "打开状态不执行调用")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("opens", "rejected")))
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	t.Run("探测成功后关闭", func(t *testing.T) {
		cb := NewCircuitBreaker("half-open-ok", tripAfter(1))
		_ = cb.Execute(func() error { return errBroker })
		require.Equal(t, StateOpen, cb.State())

		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, StateHalfOpen, cb.State())

		require.NoError(t, cb.Execute(func() error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("探测失败重新打开", func(t *testing.T) {
		cb := NewCircuitBreaker("half-open-fail", tripAfter(1))
		_ = cb.Execute(func() error { return errBroker })
		time.Sleep(60 * time.Millisecond)

		assert.ErrorIs(t, cb.Execute(func() error { return errBroker }), errBroker)
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("半开只放行有限探测", func(t *testing.T) {
		cb := NewCircuitBreaker("half-open-limit", tripAfter(1))
		_ = cb.Execute(func() error { return errBroker })
		time.Sleep(60 * time.Millisecond)

		entered := make(chan struct{})
		release := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(func() error {
				close(entered)
				<-release
				return nil
			})
		}()
		<-entered

		assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrOpenState)
		close(release)
		wg.Wait()
		assert.Equal(t, StateClosed, cb.State())
	})
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	cb := NewCircuitBreaker("callback", tripAfter(2))

	var transitions []string
	cb.SetStateChangeCallback(func(name string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	_ = cb.Execute(func() error { return errBroker })
	_ = cb.Execute(func() error { return errBroker })
	time.Sleep(60 * time.Millisecond)
	_ = cb.Execute(func() error { return nil })

	assert.Equal(t, []string{"CLOSED->OPEN", "OPEN->HALF_OPEN", "HALF_OPEN->CLOSED"}, transitions)
}

func TestCircuitBreaker_CallerCancellationNotCounted(t *testing.T) {
	cb := NewCircuitBreaker("cancel", tripAfter(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := cb.ExecuteContext(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Counts().TotalFailures)
	assert.Zero(t, cb.Counts().Requests)
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("defaults", Config{})
	for i := 0; i < 4; i++ {
		_ = cb.Execute(func() error { return errBroker })
	}
	assert.Equal(t, StateClosed, cb.State(), "默认连续5次失败才打开")
	_ = cb.Execute(func() error { return errBroker })
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, "defaults", cb.Name())
}

func TestCounts_FailureRate(t *testing.T) {
	c := Counts{}
	assert.Zero(t, c.FailureRate())

	c = Counts{Requests: 4, TotalFailures: 1}
	assert.InDelta(t, 0.25, c.FailureRate(), 1e-9)
}
