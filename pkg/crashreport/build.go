// build.go turns host crash records into a normalized Event.

package crashreport

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

// EventInfo is the per-submission context merged into a built event.
type EventInfo struct {
	// Release is the plugin version; empty when unknown.
	Release string

	// LastActionID is the id of the last user action before the crash.
	LastActionID string

	// Note is the optional free-text note the user typed in the error dialog.
	Note string

	// Breadcrumbs are recent user actions, oldest first.
	Breadcrumbs []Breadcrumb

	// System is the process state at submission time.
	System *SystemState
}

// BuildEvent creates a new Event from records. Records that do not expose a
// cause are skipped; the remaining exceptions keep the input order.
func BuildEvent(records []Record, info EventInfo) *Event {
	event := &Event{
		EventID:    uuid.NewString(),
		Timestamp:  time.Now(),
		Level:      LevelError,
		Release:    info.Release,
		ServerName: "",
		Exceptions: make([]Exception, 0, len(records)),
		Tags:       map[string]string{},
		Extra: map[string]any{
			ExtraLastAction: info.LastActionID,
		},
	}

	for _, record := range records {
		if exc, ok := ExceptionFromRecord(record); ok {
			event.Exceptions = append(event.Exceptions, exc)
		}
	}

	if info.Note != "" {
		event.Extra[ExtraAdditionalInfo] = info.Note
	}
	if info.System != nil {
		event.Extra[ExtraSystem] = info.System.asMap()
	}
	if len(info.Breadcrumbs) > 0 {
		event.Breadcrumbs = append([]Breadcrumb(nil), info.Breadcrumbs...)
	}

	event.Fingerprint = Fingerprint(event)
	if event.Fingerprint != "" {
		event.Tags[TagFingerprint] = event.Fingerprint
	}
	return event
}

// ExceptionFromRecord returns the exception carried by record. It reports
// false for records that are not CausedRecords or whose cause is nil.
func ExceptionFromRecord(record Record) (Exception, bool) {
	caused, ok := record.(CausedRecord)
	if !ok {
		return Exception{}, false
	}
	cause := caused.Cause()
	if cause == nil {
		return Exception{}, false
	}
	return ExceptionFromError(cause), true
}

// ExceptionFromError converts err into an Exception. The frames are taken from
// the innermost error in the chain that carries a stack.
func ExceptionFromError(err error) Exception {
	return Exception{
		Type:    exceptionType(err),
		Message: err.Error(),
		Frames:  framesOf(err),
	}
}

// stackTracer is implemented by errors created with github.com/pkg/errors.
type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

func framesOf(err error) []Frame {
	var frames []Frame
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case FrameProvider:
			if f := v.StackFrames(); len(f) > 0 {
				frames = f
			}
		case stackTracer:
			if f := convertStackTrace(v.StackTrace()); len(f) > 0 {
				frames = f
			}
		}
	}
	if len(frames) == 0 {
		return nil
	}
	return append([]Frame(nil), frames...)
}

func convertStackTrace(st pkgerrors.StackTrace) []Frame {
	frames := make([]Frame, 0, len(st))
	for _, f := range st {
		pc := uintptr(f) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			frames = append(frames, Frame{Function: "unknown"})
			continue
		}
		file, line := fn.FileLine(pc)
		frames = append(frames, Frame{Function: fn.Name(), File: file, Line: line})
	}
	return frames
}

// exceptionType names the failure: an explicit ExceptionType() wins, otherwise
// the Go type of the root cause.
func exceptionType(err error) string {
	var root error
	for e := err; e != nil; e = errors.Unwrap(e) {
		if typed, ok := e.(interface{ ExceptionType() string }); ok {
			if name := typed.ExceptionType(); name != "" {
				return name
			}
		}
		root = e
	}
	return fmt.Sprintf("%T", root)
}

// CallerFrames captures the current goroutine's frames, innermost first,
// skipping skip frames above the caller.
func CallerFrames(skip int) []Frame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}
	iter := runtime.CallersFrames(pcs[:n])
	var frames []Frame
	for {
		f, more := iter.Next()
		frames = append(frames, Frame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return frames
}
