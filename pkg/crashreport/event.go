// event.go defines the normalized event handed to backend clients.

package crashreport

import "time"

// Level is the severity of an event.
type Level string

const (
	// LevelWarning marks a non-fatal problem.
	LevelWarning Level = "warning"

	// LevelError is used for every plugin crash.
	LevelError Level = "error"

	// LevelFatal marks a crash that took the process down.
	LevelFatal Level = "fatal"
)

// Keys used in Event.Extra and Event.Tags.
const (
	ExtraLastAction     = "last_action"
	ExtraAdditionalInfo = "additional_info"
	ExtraSystem         = "system"
	TagIDEBuild         = "ide.build"
	TagFingerprint      = "fingerprint"
)

// Frame is one call-stack entry. Zero values mean "unknown".
type Frame struct {
	Function string `json:"function,omitempty" yaml:"function,omitempty"`
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// Exception is one structured failure: a message and its frames, innermost
// frame first.
type Exception struct {
	Type    string  `json:"type,omitempty" yaml:"type,omitempty"`
	Message string  `json:"message" yaml:"message"`
	Frames  []Frame `json:"frames,omitempty" yaml:"frames,omitempty"`
}

// Breadcrumb is a user action that happened before the crash.
type Breadcrumb struct {
	ActionID  string    `json:"action_id" yaml:"action_id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Event is the normalized representation of one submission.
// Events are built per submission and must not be reused.
type Event struct {
	// EventID is a UUID assigned when the event is built.
	EventID string `json:"event_id" yaml:"event_id"`

	// Timestamp is when the event was built.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Level is always LevelError for submissions from the host.
	Level Level `json:"level" yaml:"level"`

	// Release is the plugin version, empty when unknown.
	Release string `json:"release,omitempty" yaml:"release,omitempty"`

	// ServerName is always empty. Clients must not fill it in.
	ServerName string `json:"server_name" yaml:"server_name"`

	// Exceptions holds one entry per record that carried a cause, in input order.
	Exceptions []Exception `json:"exceptions" yaml:"exceptions"`

	// Fingerprint groups events with the same failure shape.
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`

	// Tags are indexed key-value pairs.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Extra holds free-form debugging context such as the last action id.
	Extra map[string]any `json:"extra" yaml:"extra"`

	// Breadcrumbs are the most recent user actions, oldest first.
	Breadcrumbs []Breadcrumb `json:"breadcrumbs,omitempty" yaml:"breadcrumbs,omitempty"`
}

// LastAction returns the last action id recorded in Extra.
func (e *Event) LastAction() string {
	if e == nil || e.Extra == nil {
		return ""
	}
	s, _ := e.Extra[ExtraLastAction].(string)
	return s
}
