// Package headless provides a crashreport.Host for processes without a UI:
// CLIs, daemons and tests.
//
// Progress tasks run on a worker goroutine while the caller waits, and
// InvokeLater callbacks run in order on a single UI goroutine. Messages meant
// for the user are logged.
package headless

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
)

// Message is a user-facing message shown through the host.
type Message struct {
	Error  bool
	Anchor crashreport.Anchor
	Title  string
	Text   string
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger messages and progress are written to.
func WithLogger(logger *logrus.Entry) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithProjectResolver sets how anchors map to projects.
func WithProjectResolver(fn func(anchor crashreport.Anchor) crashreport.Project) Option {
	return func(h *Host) {
		h.resolveProject = fn
	}
}

// WithActionTracker shares an existing action tracker.
func WithActionTracker(tracker *crashreport.ActionTracker) Option {
	return func(h *Host) {
		if tracker != nil {
			h.actions = tracker
		}
	}
}

// Host is a headless crashreport.Host.
type Host struct {
	logger         *logrus.Entry
	resolveProject func(anchor crashreport.Anchor) crashreport.Project
	actions        *crashreport.ActionTracker

	uiMu      sync.Mutex
	pending   []func()
	wake      chan struct{}
	done      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once

	closeMu sync.RWMutex
	closed  bool

	mu       sync.Mutex
	messages []Message
}

var (
	_ crashreport.Host             = (*Host)(nil)
	_ crashreport.BreadcrumbSource = (*Host)(nil)
)

// New creates a Host and starts its UI goroutine. Call Close to stop it.
func New(opts ...Option) *Host {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	h := &Host{
		logger:   logrus.NewEntry(discard),
		actions:  crashreport.NewActionTracker(0),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	go h.uiLoop()
	return h
}

func (h *Host) uiLoop() {
	defer close(h.loopDone)
	for {
		select {
		case <-h.wake:
			h.runPending()
		case <-h.done:
			h.runPending()
			return
		}
	}
}

// runPending runs queued callbacks, including any they queue themselves.
func (h *Host) runPending() {
	for {
		h.uiMu.Lock()
		batch := h.pending
		h.pending = nil
		h.uiMu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// ProjectFor resolves the anchor's project with the configured resolver.
func (h *Host) ProjectFor(anchor crashreport.Anchor) crashreport.Project {
	if h.resolveProject == nil {
		return nil
	}
	return h.resolveProject(anchor)
}

// RunWithProgress runs fn on a worker goroutine and waits for it. The task is
// not cancelable: a canceled ctx is passed on but does not stop the wait.
func (h *Host) RunWithProgress(ctx context.Context, task crashreport.ProgressTask, fn func(ctx context.Context)) {
	logger := h.logger.WithField("task", task.Title)
	logger.Debug("progress started")

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		fn(ctx)
	}()
	<-finished

	logger.Debug("progress finished")
}

// InvokeLater queues fn for the UI goroutine and never blocks, so callbacks
// may queue further callbacks. After Close, fn runs on the calling goroutine
// so that no callback is lost.
func (h *Host) InvokeLater(fn func()) {
	h.closeMu.RLock()
	if h.closed {
		h.closeMu.RUnlock()
		fn()
		return
	}
	// the read lock keeps Close from stopping the loop while we enqueue
	h.uiMu.Lock()
	h.pending = append(h.pending, fn)
	h.uiMu.Unlock()
	h.closeMu.RUnlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Sync waits until every callback queued before the call has run.
func (h *Host) Sync(ctx context.Context) error {
	marker := make(chan struct{})
	h.InvokeLater(func() { close(marker) })
	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShowInfo logs an informational message.
func (h *Host) ShowInfo(anchor crashreport.Anchor, message, title string) {
	h.show(Message{Anchor: anchor, Title: title, Text: message})
	h.logger.WithField("title", title).Info(message)
}

// ShowError logs an error message.
func (h *Host) ShowError(anchor crashreport.Anchor, message, title string) {
	h.show(Message{Error: true, Anchor: anchor, Title: title, Text: message})
	h.logger.WithField("title", title).Error(message)
}

func (h *Host) show(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

// Messages returns the messages shown so far.
func (h *Host) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]Message, len(h.messages))
	copy(result, h.messages)
	return result
}

// RecordAction notes a user-initiated action.
func (h *Host) RecordAction(actionID string) {
	h.actions.Record(actionID)
}

// LastActionID returns the most recent action id.
func (h *Host) LastActionID() string {
	return h.actions.LastActionID()
}

// RecentActions returns recent actions, oldest first.
func (h *Host) RecentActions() []crashreport.Breadcrumb {
	return h.actions.RecentActions()
}

// Close runs the queued callbacks and stops the UI goroutine.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		h.closeMu.Lock()
		h.closed = true
		h.closeMu.Unlock()

		close(h.done)
		<-h.loopDone
	})
	return nil
}
