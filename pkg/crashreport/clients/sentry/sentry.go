// Package sentry provides a client that delivers crash events to Sentry.
//
// Delivery is asynchronous: Send hands the event to the sentry-go transport
// and returns. Frames are classified as in-app by package prefix and every
// event is stamped with the host build; the host name is always removed.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
)

// DefaultInAppPrefixes marks this module's own frames as application frames.
var DefaultInAppPrefixes = []string{"github.com/strongdm/plugin-crash-reporter"}

// DefaultFlushTimeout is used by Flush when ctx has no deadline.
const DefaultFlushTimeout = 2 * time.Second

var (
	// ErrEventDropped is returned when sentry-go discarded the event before
	// sending, for example in BeforeSend.
	ErrEventDropped = errors.New("sentry: event dropped before sending")

	// ErrFlushTimeout is returned when buffered events were not delivered in time.
	ErrFlushTimeout = errors.New("sentry: flush timed out")
)

// Config is the static configuration of the Sentry client.
type Config struct {
	// DSN is the Sentry client key. An empty DSN disables delivery.
	DSN string

	// Environment is reported with every event.
	Environment string

	// IDEBuild is the host application's build, sent as the ide.build tag.
	IDEBuild string

	// InAppPrefixes lists package prefixes of application frames.
	// Defaults to DefaultInAppPrefixes.
	InAppPrefixes []string

	// Debug enables sentry-go debug logging.
	Debug bool

	// BeforeSend is called with the final event; returning nil drops it.
	BeforeSend func(event *sentrygo.Event, hint *sentrygo.EventHint) *sentrygo.Event
}

// eventCapturer is the part of *sentry.Client the client uses.
type eventCapturer interface {
	CaptureEvent(event *sentrygo.Event, hint *sentrygo.EventHint, scope sentrygo.EventModifier) *sentrygo.EventID
	Flush(timeout time.Duration) bool
}

// Ensuring that *sentry.Client is implementing eventCapturer interface.
var _ eventCapturer = (*sentrygo.Client)(nil)

type sentryClient struct {
	capturer eventCapturer
	closed   atomic.Bool
}

// NewClient creates a Sentry client from cfg. The returned client should be
// shared by the whole process; see crashreport.LazyClient.
func NewClient(cfg Config) (crashreport.Client, error) {
	sc, err := sentrygo.NewClient(sentrygo.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Debug:       cfg.Debug,
		SampleRate:  1.0,
		BeforeSend:  cfg.BeforeSend,
	})
	if err != nil {
		return nil, fmt.Errorf("error setting up Sentry: %w", err)
	}

	prefixes := cfg.InAppPrefixes
	if len(prefixes) == 0 {
		prefixes = DefaultInAppPrefixes
	}
	sc.AddEventProcessor(InAppClassifier(prefixes))
	sc.AddEventProcessor(BuildTagger(cfg.IDEBuild))
	sc.AddEventProcessor(stripServerName)

	return &sentryClient{capturer: sc}, nil
}

// Send converts the event and hands it to sentry-go.
func (c *sentryClient) Send(ctx context.Context, event *crashreport.Event) (string, error) {
	if c.closed.Load() {
		return "", crashreport.ErrClientClosed
	}

	id := c.capturer.CaptureEvent(ToSentryEvent(event), &sentrygo.EventHint{Context: ctx}, sentrygo.NewScope())
	if id == nil {
		return "", ErrEventDropped
	}
	return string(*id), nil
}

// Flush waits for buffered events until ctx's deadline, or DefaultFlushTimeout.
func (c *sentryClient) Flush(ctx context.Context) error {
	timeout := DefaultFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 || !c.capturer.Flush(timeout) {
		return ErrFlushTimeout
	}
	return nil
}

// Close flushes buffered events; Send fails afterwards.
func (c *sentryClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if !c.capturer.Flush(DefaultFlushTimeout) {
		return ErrFlushTimeout
	}
	return nil
}

// ToSentryEvent converts a normalized event into the sentry-go representation.
func ToSentryEvent(event *crashreport.Event) *sentrygo.Event {
	se := sentrygo.NewEvent()
	se.EventID = sentrygo.EventID(strings.ReplaceAll(event.EventID, "-", ""))
	se.Timestamp = event.Timestamp
	se.Level = toSentryLevel(event.Level)
	se.Release = event.Release
	se.ServerName = ""

	for k, v := range event.Tags {
		se.Tags[k] = v
	}
	for k, v := range event.Extra {
		se.Extra[k] = v
	}

	se.Exception = make([]sentrygo.Exception, 0, len(event.Exceptions))
	for _, exc := range event.Exceptions {
		se.Exception = append(se.Exception, sentrygo.Exception{
			Type:       exc.Type,
			Value:      exc.Message,
			Stacktrace: toSentryStacktrace(exc.Frames),
		})
	}
	if len(se.Exception) == 0 {
		se.Message = "crash report without a recoverable stack trace"
	}

	for _, crumb := range event.Breadcrumbs {
		se.Breadcrumbs = append(se.Breadcrumbs, &sentrygo.Breadcrumb{
			Type:      "user",
			Category:  "action",
			Message:   crumb.ActionID,
			Timestamp: crumb.Timestamp,
		})
	}
	return se
}

func toSentryLevel(level crashreport.Level) sentrygo.Level {
	switch level {
	case crashreport.LevelWarning:
		return sentrygo.LevelWarning
	case crashreport.LevelFatal:
		return sentrygo.LevelFatal
	default:
		return sentrygo.LevelError
	}
}

// toSentryStacktrace converts innermost-first frames into Sentry's
// oldest-first order.
func toSentryStacktrace(frames []crashreport.Frame) *sentrygo.Stacktrace {
	if len(frames) == 0 {
		return nil
	}
	st := &sentrygo.Stacktrace{Frames: make([]sentrygo.Frame, 0, len(frames))}
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		st.Frames = append(st.Frames, sentrygo.Frame{
			Function: f.Function,
			Filename: f.File,
			AbsPath:  f.File,
			Lineno:   f.Line,
		})
	}
	return st
}

// InAppClassifier marks frames whose function or module starts with one of
// prefixes as in-app and all other frames as library frames.
func InAppClassifier(prefixes []string) sentrygo.EventProcessor {
	return func(event *sentrygo.Event, hint *sentrygo.EventHint) *sentrygo.Event {
		for i := range event.Exception {
			st := event.Exception[i].Stacktrace
			if st == nil {
				continue
			}
			for j := range st.Frames {
				st.Frames[j].InApp = isInApp(st.Frames[j], prefixes)
			}
		}
		return event
	}
}

func isInApp(frame sentrygo.Frame, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if strings.HasPrefix(frame.Function, p) || strings.HasPrefix(frame.Module, p) {
			return true
		}
	}
	return false
}

// BuildTagger stamps every event with the host build.
func BuildTagger(build string) sentrygo.EventProcessor {
	return func(event *sentrygo.Event, hint *sentrygo.EventHint) *sentrygo.Event {
		if build == "" {
			return event
		}
		if event.Tags == nil {
			event.Tags = map[string]string{}
		}
		event.Tags[crashreport.TagIDEBuild] = build
		return event
	}
}

// stripServerName removes the host name sentry-go fills in by default.
func stripServerName(event *sentrygo.Event, hint *sentrygo.EventHint) *sentrygo.Event {
	event.ServerName = ""
	return event
}
