package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_DeliversToSubscribers(t *testing.T) {
	d := NewDispatcher(8)
	var got atomic.Int32
	d.Subscribe(RequestCompleted, func(ctx context.Context, e Event) error {
		assert.Equal(t, "req-1", e.RequestID)
		got.Add(1)
		return nil
	})

	d.Start(context.Background(), 2)
	defer d.Stop()

	d.Emit(Event{Type: RequestCompleted, RequestID: "req-1"})
	d.Emit(Event{Type: VerdictSubmitted, RequestID: "req-1"})

	assert.Eventually(t, func() bool { return got.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestDispatcher_EmitNeverBlocks(t *testing.T) {
	d := NewDispatcher(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			d.Emit(Event{Type: RequestCreated, RequestID: "req"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full queue")
	}
}

func TestDispatcher_HandlerPanicIsContained(t *testing.T) {
	d := NewDispatcher(4)
	var after atomic.Int32
	d.Subscribe(RequestCreated, func(ctx context.Context, e Event) error { panic("boom") })
	d.Subscribe(RequestCreated, func(ctx context.Context, e Event) error {
		after.Add(1)
		return nil
	})

	d.Start(context.Background(), 1)
	defer d.Stop()
	d.Emit(Event{Type: RequestCreated})

	assert.Eventually(t, func() bool { return after.Load() == 1 }, time.Second, 10*time.Millisecond)
}
