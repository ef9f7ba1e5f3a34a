// Package cxdb provides a client that archives crash events in cxdb as
// SystemMessage items, one context per plugin.
package cxdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// CXDBClientOption configures the cxdb client.
type CXDBClientOption func(*cxdbClientConfig)

type cxdbClientConfig struct {
	labels    []string
	clientTag string
	contextID uint64
}

// WithLabels sets the labels of the crash archive context.
func WithLabels(labels []string) CXDBClientOption {
	return func(c *cxdbClientConfig) {
		c.labels = labels
	}
}

// WithClientTag sets the client tag of the crash archive context.
func WithClientTag(tag string) CXDBClientOption {
	return func(c *cxdbClientConfig) {
		c.clientTag = tag
	}
}

// WithContextID appends to an existing context instead of creating one.
func WithContextID(id uint64) CXDBClientOption {
	return func(c *cxdbClientConfig) {
		c.contextID = id
	}
}

// cxdbArchive writes crash events to cxdb.
type cxdbArchive struct {
	client    CXDBClient
	labels    []string
	clientTag string

	mu        sync.Mutex
	contextID uint64
	closed    bool
}

// NewCXDBClient creates a crashreport.Client that archives events in cxdb.
// The archive context is created on the first Send unless WithContextID is used.
func NewCXDBClient(client CXDBClient, opts ...CXDBClientOption) crashreport.Client {
	cfg := &cxdbClientConfig{
		labels:    []string{"crash", "plugin"},
		clientTag: "crashreport",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &cxdbArchive{
		client:    client,
		labels:    cfg.labels,
		clientTag: cfg.clientTag,
		contextID: cfg.contextID,
	}
}

// Send appends the event as a turn of the archive context.
func (a *cxdbArchive) Send(ctx context.Context, event *crashreport.Event) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return "", crashreport.ErrClientClosed
	}

	firstTurn := false
	if a.contextID == 0 {
		head, err := a.client.CreateContext(ctx, 0)
		if err != nil {
			return "", fmt.Errorf("create archive context: %w", err)
		}
		a.contextID = head.ContextID
		firstTurn = true
	}

	item := a.buildConversationItem(event, firstTurn)

	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      a.contextID,
		ParentTurnID:   0,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: event.EventID,
	}

	if _, err := a.client.AppendTurn(ctx, req); err != nil {
		return "", fmt.Errorf("append turn: %w", err)
	}
	return event.EventID, nil
}

// buildConversationItem creates a ConversationItem from an Event.
func (a *cxdbArchive) buildConversationItem(event *crashreport.Event, firstTurn bool) *cxdtypes.ConversationItem {
	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: event.Timestamp.UnixMilli(),
		ID:        event.EventID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   buildTitle(event),
			Content: buildDetails(event),
		},
	}

	// cxdb expects context metadata on the first turn.
	if firstTurn {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    a.labels,
			ClientTag: a.clientTag,
		}
	}
	return item
}

// buildTitle returns "Type: message" of the first exception, at most 100 chars.
func buildTitle(event *crashreport.Event) string {
	if len(event.Exceptions) == 0 {
		return "crash report"
	}
	first := event.Exceptions[0]
	title := first.Type
	if first.Message != "" {
		const maxMsgLen = 80
		msg := first.Message
		if len(msg) > maxMsgLen {
			msg = msg[:maxMsgLen] + "..."
		}
		title = first.Type + ": " + msg
	}
	if len(title) > 100 {
		title = title[:97] + "..."
	}
	return title
}

// buildDetails encodes the full event as JSON for SystemMessage.Content.
func buildDetails(event *crashreport.Event) string {
	jsonBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to encode details: %s"}`, err)
	}
	return string(jsonBytes)
}

// Flush is a no-op; appends are synchronous.
func (a *cxdbArchive) Flush(ctx context.Context) error {
	return nil
}

// Close marks the client closed. The underlying connection is owned by the caller.
func (a *cxdbArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}
