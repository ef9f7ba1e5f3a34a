// Package stderr provides a client that prints crash events in human-readable
// format instead of delivering them. Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
)

// StderrClientOption configures the stderr client.
type StderrClientOption func(*stderrClientConfig)

type stderrClientConfig struct {
	verbose bool
	out     io.Writer
}

// WithVerbose enables full details including stack frames and extras.
func WithVerbose() StderrClientOption {
	return func(c *stderrClientConfig) {
		c.verbose = true
	}
}

// WithWriter writes to w instead of os.Stderr.
func WithWriter(w io.Writer) StderrClientOption {
	return func(c *stderrClientConfig) {
		if w != nil {
			c.out = w
		}
	}
}

// stderrClient writes events in human-readable format.
type stderrClient struct {
	mu      sync.Mutex
	verbose bool
	out     io.Writer
}

// NewStderrClient creates a client that writes to stderr.
func NewStderrClient(opts ...StderrClientOption) crashreport.Client {
	cfg := &stderrClientConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrClient{
		verbose: cfg.verbose,
		out:     cfg.out,
	}
}

// Send formats and outputs the event.
func (c *stderrClient) Send(ctx context.Context, event *crashreport.Event) (string, error) {
	// Format: [CRASHREPORT] <timestamp> <LEVEL> <n> exception(s) [release <release>]
	timestamp := event.Timestamp.Format("2006-01-02T15:04:05Z07:00")

	var b strings.Builder
	parts := []string{fmt.Sprintf("[CRASHREPORT] %s %s %d exception(s)",
		timestamp, strings.ToUpper(string(event.Level)), len(event.Exceptions))}
	if event.Release != "" {
		parts = append(parts, fmt.Sprintf("release %s", event.Release))
	}
	b.WriteString(strings.Join(parts, " "))
	b.WriteString("\n")

	if action := event.LastAction(); action != "" {
		fmt.Fprintf(&b, "        Last action: %s\n", action)
	}
	if build := event.Tags[crashreport.TagIDEBuild]; build != "" {
		fmt.Fprintf(&b, "        IDE build: %s\n", build)
	}
	if event.Fingerprint != "" {
		fmt.Fprintf(&b, "        Fingerprint: %s\n", event.Fingerprint)
	}

	for i, exc := range event.Exceptions {
		fmt.Fprintf(&b, "        Exception %d: %s: %s\n", i+1, exc.Type, exc.Message)
		if !c.verbose {
			continue
		}
		for _, f := range exc.Frames {
			fmt.Fprintf(&b, "          at %s (%s:%d)\n", f.Function, f.File, f.Line)
		}
	}

	if c.verbose {
		if note, ok := event.Extra[crashreport.ExtraAdditionalInfo].(string); ok && note != "" {
			fmt.Fprintf(&b, "        Note: %s\n", note)
		}
		for _, crumb := range event.Breadcrumbs {
			fmt.Fprintf(&b, "        Action: %s at %s\n", crumb.ActionID, crumb.Timestamp.Format("15:04:05"))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.out, b.String()); err != nil {
		return "", fmt.Errorf("write event: %w", err)
	}
	return event.EventID, nil
}

// Flush is a no-op for the stderr client.
func (c *stderrClient) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the stderr client.
func (c *stderrClient) Close() error {
	return nil
}
