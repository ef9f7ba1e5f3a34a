// record.go defines the crash records a host hands to the reporter.

package crashreport

// Record is one crash as logged by the host. Text is what the host shows in
// its error dialog; it carries no structured stack.
type Record interface {
	Text() string
}

// CausedRecord is a Record that also exposes the original failure.
// Cause may return nil when the host could not recover it.
type CausedRecord interface {
	Record
	Cause() error
}

// FrameProvider is implemented by errors that carry their own call stack.
// Frames are ordered innermost first.
type FrameProvider interface {
	StackFrames() []Frame
}

// PlainMessage is a record with display text only.
type PlainMessage struct {
	Message string
}

// Text returns the display text.
func (m PlainMessage) Text() string {
	return m.Message
}

// CausedMessage is a record wrapping the error that caused the crash.
type CausedMessage struct {
	Message string
	Err     error
}

// Text returns the display text, falling back to the cause's message.
func (m CausedMessage) Text() string {
	if m.Message == "" && m.Err != nil {
		return m.Err.Error()
	}
	return m.Message
}

// Cause returns the wrapped error.
func (m CausedMessage) Cause() error {
	return m.Err
}

// Failure is an error with an explicit type name and call stack, used when the
// crash did not originate in this process (for example a host-side exception
// decoded from JSON).
type Failure struct {
	Type    string  `json:"type,omitempty" yaml:"type,omitempty"`
	Message string  `json:"message" yaml:"message"`
	Frames  []Frame `json:"frames,omitempty" yaml:"frames,omitempty"`
}

func (f *Failure) Error() string {
	return f.Message
}

// ExceptionType returns the failure's declared type name.
func (f *Failure) ExceptionType() string {
	return f.Type
}

// StackFrames returns the failure's frames.
func (f *Failure) StackFrames() []Frame {
	return f.Frames
}
