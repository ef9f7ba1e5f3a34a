// Package async provides a client wrapper with a bounded queue so that Send
// never blocks on the wrapped client. Oldest events are dropped when full.
package async

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
)

// AsyncClientOption configures the async client.
type AsyncClientOption func(*asyncClientConfig)

type asyncClientConfig struct {
	queueSize int
	onDropped func(count int)
	onError   func(event *crashreport.Event, err error)
}

// WithQueueSize sets the maximum number of queued events (default: 100).
func WithQueueSize(size int) AsyncClientOption {
	return func(c *asyncClientConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithOnDropped sets a callback invoked when events are dropped due to queue overflow.
func WithOnDropped(fn func(count int)) AsyncClientOption {
	return func(c *asyncClientConfig) {
		c.onDropped = fn
	}
}

// WithOnError sets a callback invoked when the wrapped client rejects an event.
func WithOnError(fn func(event *crashreport.Event, err error)) AsyncClientOption {
	return func(c *asyncClientConfig) {
		c.onError = fn
	}
}

// asyncClient wraps a client with a bounded queue.
type asyncClient struct {
	inner     crashreport.Client
	queue     chan *crashreport.Event
	done      chan struct{}
	closeOnce sync.Once
	closeMu   sync.Mutex
	closed    bool
	wg        sync.WaitGroup
	pending   atomic.Int64
	onDropped func(count int)
	onError   func(event *crashreport.Event, err error)
}

// NewAsyncClient wraps inner with a bounded queue.
// Send returns immediately; events are sent to inner in the background.
// When the queue is full, the oldest event is dropped to make room.
func NewAsyncClient(inner crashreport.Client, opts ...AsyncClientOption) crashreport.Client {
	cfg := &asyncClientConfig{
		queueSize: 100,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &asyncClient{
		inner:     inner,
		queue:     make(chan *crashreport.Event, cfg.queueSize),
		done:      make(chan struct{}),
		onDropped: cfg.onDropped,
		onError:   cfg.onError,
	}

	c.wg.Add(1)
	go c.processLoop()

	return c
}

// processLoop drains the queue and sends to the inner client.
func (c *asyncClient) processLoop() {
	defer c.wg.Done()
	for {
		select {
		case event := <-c.queue:
			c.send(event)
		case <-c.done:
			// drain remaining events
			for {
				select {
				case event := <-c.queue:
					c.send(event)
				default:
					return
				}
			}
		}
	}
}

func (c *asyncClient) send(event *crashreport.Event) {
	defer c.pending.Add(-1)
	if _, err := c.inner.Send(context.Background(), event); err != nil && c.onError != nil {
		c.onError(event, err)
	}
}

// Send enqueues an event and returns its id.
// If the queue is full, the oldest queued event is dropped.
func (c *asyncClient) Send(ctx context.Context, event *crashreport.Event) (string, error) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return "", crashreport.ErrClientClosed
	}

	c.pending.Add(1)
	select {
	case c.queue <- event:
	default:
		c.dropOldestAndEnqueue(event)
	}
	return event.EventID, nil
}

// dropOldestAndEnqueue drops the oldest event and enqueues the new one.
func (c *asyncClient) dropOldestAndEnqueue(event *crashreport.Event) {
	select {
	case <-c.queue:
		c.dropped()
	default:
		// emptied by the processor meanwhile
	}

	select {
	case c.queue <- event:
	default:
		// still full, drop the new event
		c.dropped()
	}
}

func (c *asyncClient) dropped() {
	c.pending.Add(-1)
	if c.onDropped != nil {
		c.onDropped(1)
	}
}

// Flush blocks until all queued events were sent, then flushes the inner client.
func (c *asyncClient) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return c.inner.Flush(ctx)
}

// Close stops the processor after draining the queue and closes the inner client.
func (c *asyncClient) Close() error {
	c.closeOnce.Do(func() {
		c.closeMu.Lock()
		c.closed = true
		c.closeMu.Unlock()

		close(c.done)
		c.wg.Wait()
	})

	return c.inner.Close()
}
