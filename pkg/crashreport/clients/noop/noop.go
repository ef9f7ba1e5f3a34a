// Package noop provides a client that discards all events.
// Useful for testing and for disabling crash reporting.
package noop

import (
	"context"

	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
)

// noopClient discards all events.
type noopClient struct{}

// NewNoopClient creates a client that discards all events.
// Send returns the event's own id; all other methods do nothing.
func NewNoopClient() crashreport.Client {
	return &noopClient{}
}

// Send discards the event.
func (c *noopClient) Send(ctx context.Context, event *crashreport.Event) (string, error) {
	return event.EventID, nil
}

// Flush is a no-op and returns nil.
func (c *noopClient) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op and returns nil.
func (c *noopClient) Close() error {
	return nil
}
