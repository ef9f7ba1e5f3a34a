// recover.go turns Go panics inside a plugin into crash records.

package crashreport

import (
	"context"
	"fmt"
	"strings"
)

// Recover captures a panic, submits it to sink and returns the recovered value.
// Unlike a bare recover it reports the panic; like a bare recover it does NOT
// re-panic.
//
// Use in defer:
//
//	func (a *Action) Perform(ctx context.Context) {
//	    defer crashreport.Recover(ctx, reporter, a.anchor)
//	    // code that might panic
//	}
func Recover(ctx context.Context, sink CrashSink, anchor Anchor) any {
	r := recover()
	if r == nil {
		return nil
	}
	// Submission problems are the sink's concern; the caller keeps running.
	sink.Submit(ctx, []Record{PanicRecord(r)}, "", anchor, nil)
	return r
}

// PanicRecord builds a crash record for a recovered panic value. It must be
// called from the deferred function handling the panic so that the captured
// frames are those of the panicking goroutine.
func PanicRecord(recovered any) Record {
	msg := formatRecovered(recovered)
	typ := "panic"
	if err, ok := recovered.(error); ok {
		typ = exceptionType(err)
	}
	return CausedMessage{
		Message: msg,
		Err: &Failure{
			Type:    typ,
			Message: msg,
			Frames:  panicFrames(CallerFrames(1)),
		},
	}
}

// panicFrames drops the frames of the deferred handler and the runtime's
// panic machinery so the panicking function comes first.
func panicFrames(frames []Frame) []Frame {
	for i, f := range frames {
		if f.Function != "runtime.gopanic" {
			continue
		}
		rest := frames[i+1:]
		for len(rest) > 0 && strings.HasPrefix(rest[0].Function, "runtime.") {
			rest = rest[1:]
		}
		return rest
	}
	return frames
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}
