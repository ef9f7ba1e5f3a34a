// client.go defines the backend Client and the process-wide lazy client.

package crashreport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrClientClosed is returned by clients after Close.
	ErrClientClosed = errors.New("crashreport: client is closed")

	// ErrNoClient is returned by a LazyClient without a factory.
	ErrNoClient = errors.New("crashreport: no client factory configured")
)

// Client delivers events to an error-tracking backend.
// Implementations must be safe for concurrent use.
type Client interface {
	// Send hands the event to the backend and returns the backend's event id.
	// Delivery may complete asynchronously after Send returns.
	Send(ctx context.Context, event *Event) (string, error)

	// Flush blocks until buffered events are delivered or ctx is done.
	Flush(ctx context.Context) error

	// Close releases resources held by the client.
	// After Close is called, Send should return ErrClientClosed.
	Close() error
}

// ClientProvider gives access to the shared Client.
type ClientProvider interface {
	Client() (Client, error)
}

// ClientFactory constructs a Client. It is called at most once per LazyClient.
type ClientFactory func() (Client, error)

// LazyClient constructs its Client exactly once, on first access, even under
// concurrent first access. A construction error is kept and returned by every
// later call; the factory is not retried. A panicking factory counts as a
// construction error.
type LazyClient struct {
	once    sync.Once
	done    atomic.Bool
	factory ClientFactory
	client  Client
	err     error
}

// NewLazyClient returns a LazyClient that builds its Client with factory.
func NewLazyClient(factory ClientFactory) *LazyClient {
	return &LazyClient{factory: factory}
}

// StaticClient returns a LazyClient that always yields client.
func StaticClient(client Client) *LazyClient {
	return NewLazyClient(func() (Client, error) { return client, nil })
}

// Client returns the shared Client, constructing it on first call.
func (l *LazyClient) Client() (Client, error) {
	l.once.Do(func() {
		defer l.done.Store(true)
		if l.factory == nil {
			l.err = ErrNoClient
			return
		}
		defer func() {
			if r := recover(); r != nil {
				l.client, l.err = nil, fmt.Errorf("constructing crash report client: panic: %v", r)
			}
		}()
		l.client, l.err = l.factory()
		if l.err == nil && l.client == nil {
			l.err = ErrNoClient
		}
	})
	return l.client, l.err
}

// Flush flushes the client if it has been constructed.
func (l *LazyClient) Flush(ctx context.Context) error {
	if !l.done.Load() || l.client == nil {
		return nil
	}
	return l.client.Flush(ctx)
}

// Close closes the client if it has been constructed. A LazyClient that was
// never accessed will not construct one afterwards.
func (l *LazyClient) Close() error {
	l.once.Do(func() {
		l.err = ErrClientClosed
		l.done.Store(true)
	})
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}
