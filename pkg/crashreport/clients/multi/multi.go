// Package multi provides a client that fans out to multiple clients.
// All clients receive all events; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
)

// multiClient fans out to multiple clients.
type multiClient struct {
	clients []crashreport.Client
}

// NewMultiClient creates a client that sends to multiple clients.
// The first non-empty event id returned wins. Errors are aggregated via
// errors.Join.
func NewMultiClient(clients ...crashreport.Client) crashreport.Client {
	return &multiClient{
		clients: clients,
	}
}

// Send sends the event to all clients, collecting any errors.
// All clients are called even if some return errors.
func (c *multiClient) Send(ctx context.Context, event *crashreport.Event) (string, error) {
	var (
		id   string
		errs []error
	)
	for _, client := range c.clients {
		got, err := client.Send(ctx, event)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if id == "" {
			id = got
		}
	}
	return id, errors.Join(errs...)
}

// Flush calls Flush on all clients, collecting any errors.
func (c *multiClient) Flush(ctx context.Context) error {
	var errs []error
	for _, client := range c.clients {
		if err := client.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on all clients, collecting any errors.
func (c *multiClient) Close() error {
	var errs []error
	for _, client := range c.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
