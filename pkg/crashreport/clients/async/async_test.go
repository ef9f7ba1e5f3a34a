package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
)

// slowClient is a test client that can be slow and tracks events.
type slowClient struct {
	mu      sync.Mutex
	events  []*crashreport.Event
	delay   time.Duration
	sendErr error
	closed  bool
}

func (c *slowClient) Send(ctx context.Context, event *crashreport.Event) (string, error) {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return event.EventID, c.sendErr
}

func (c *slowClient) Flush(ctx context.Context) error {
	return nil
}

func (c *slowClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *slowClient) getEvents() []*crashreport.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]*crashreport.Event, len(c.events))
	copy(result, c.events)
	return result
}

func event(id string) *crashreport.Event {
	return &crashreport.Event{EventID: id}
}

func TestAsyncClient_ImplementsClientInterface(t *testing.T) {
	var _ crashreport.Client = NewAsyncClient(&slowClient{})
}

func TestAsyncClient_Send_ReturnsImmediately(t *testing.T) {
	inner := &slowClient{delay: 100 * time.Millisecond}
	client := NewAsyncClient(inner, WithQueueSize(100))
	defer client.Close()

	start := time.Now()
	id, err := client.Send(context.Background(), event("evt-1"))
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if id != "evt-1" {
		t.Errorf("id = %q, want evt-1", id)
	}
	// Send should return immediately (much less than the inner client's delay)
	if elapsed > 50*time.Millisecond {
		t.Errorf("Send took %v, should return in <50ms", elapsed)
	}
}

func TestAsyncClient_OnDropped_WhenQueueFull(t *testing.T) {
	inner := &slowClient{delay: 50 * time.Millisecond}
	var droppedCount atomic.Int32
	client := NewAsyncClient(inner,
		WithQueueSize(1),
		WithOnDropped(func(count int) {
			droppedCount.Add(int32(count))
		}),
	)

	for i := 0; i < 10; i++ {
		client.Send(context.Background(), event(fmt.Sprintf("evt-%d", i)))
	}
	client.Close()

	if droppedCount.Load() == 0 {
		t.Error("OnDropped callback should have been called")
	}
	if got := len(inner.getEvents()) + int(droppedCount.Load()); got != 10 {
		t.Errorf("sent + dropped = %d, want 10", got)
	}
	// the newest event always survives
	events := inner.getEvents()
	if events[len(events)-1].EventID != "evt-9" {
		t.Errorf("last sent = %q, want evt-9", events[len(events)-1].EventID)
	}
}

func TestAsyncClient_OnError(t *testing.T) {
	inner := &slowClient{sendErr: errors.New("backend down")}
	var failed atomic.Int32
	client := NewAsyncClient(inner, WithOnError(func(event *crashreport.Event, err error) {
		failed.Add(1)
	}))

	client.Send(context.Background(), event("evt"))
	if err := client.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	client.Close()

	if failed.Load() != 1 {
		t.Errorf("OnError calls = %d, want 1", failed.Load())
	}
}

func TestAsyncClient_Flush_DrainsQueue(t *testing.T) {
	inner := &slowClient{}
	client := NewAsyncClient(inner, WithQueueSize(100))
	defer client.Close()

	for i := 0; i < 10; i++ {
		client.Send(context.Background(), event(fmt.Sprintf("evt-%d", i)))
	}

	if err := client.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if got := len(inner.getEvents()); got != 10 {
		t.Errorf("Expected 10 events after flush, got %d", got)
	}
}

func TestAsyncClient_Flush_HonorsContext(t *testing.T) {
	inner := &slowClient{delay: 200 * time.Millisecond}
	client := NewAsyncClient(inner)
	defer client.Close()

	client.Send(context.Background(), event("evt"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := client.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Flush error = %v, want deadline exceeded", err)
	}
}

func TestAsyncClient_Close_DrainsAndClosesInner(t *testing.T) {
	inner := &slowClient{}
	client := NewAsyncClient(inner, WithQueueSize(100))

	for i := 0; i < 5; i++ {
		client.Send(context.Background(), event("evt"))
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if got := len(inner.getEvents()); got != 5 {
		t.Errorf("Expected 5 events after close, got %d", got)
	}
	if !inner.closed {
		t.Error("inner client should be closed")
	}
}

func TestAsyncClient_SendAfterClose_ReturnsError(t *testing.T) {
	client := NewAsyncClient(&slowClient{})
	client.Close()

	if _, err := client.Send(context.Background(), event("evt")); !errors.Is(err, crashreport.ErrClientClosed) {
		t.Errorf("Send after Close error = %v, want ErrClientClosed", err)
	}
}
