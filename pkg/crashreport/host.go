// host.go defines the contract between the host IDE and the reporter.

package crashreport

import "context"

// Anchor is the host UI component a submission originated from. It is opaque
// to the reporter and only handed back to the host.
type Anchor any

// Project is the host's project context. Opaque to the reporter.
type Project any

// SubmissionStatus is the outcome reported back to the host.
type SubmissionStatus string

const (
	// StatusNewIssue means the report was accepted as a new issue.
	StatusNewIssue SubmissionStatus = "NEW_ISSUE"

	// StatusDuplicate means the backend already knew the issue.
	StatusDuplicate SubmissionStatus = "DUPLICATE"

	// StatusFailed means the report could not be submitted.
	StatusFailed SubmissionStatus = "FAILED"
)

// SubmittedReportInfo is passed to the host's completion callback.
type SubmittedReportInfo struct {
	Status SubmissionStatus

	// EventID is the backend id of the submitted event, when known.
	EventID string
}

// CrashSink is the capability the host calls when the user reports a crash.
type CrashSink interface {
	// PrivacyNoticeText is shown next to the report button. May contain HTML.
	PrivacyNoticeText() string

	// ReporterAccount identifies the reporting user.
	ReporterAccount() string

	// ChangeReporterAccount lets the user change ReporterAccount.
	ChangeReporterAccount(anchor Anchor)

	// ReportActionText is the label of the report button.
	ReportActionText() string

	// Submit reports records. It returns true when the submission was accepted
	// for processing; done is called exactly once with the outcome, on the
	// host UI thread.
	Submit(ctx context.Context, records []Record, note string, anchor Anchor, done func(SubmittedReportInfo)) bool
}

// ProgressTask describes a modal background task.
type ProgressTask struct {
	Title      string
	Cancelable bool
	Project    Project
}

// Host is the set of host services the reporter uses.
type Host interface {
	// ProjectFor resolves the project the anchor belongs to. May return nil.
	ProjectFor(anchor Anchor) Project

	// RunWithProgress runs fn on a background worker under a modal progress
	// indicator and returns when fn has returned.
	RunWithProgress(ctx context.Context, task ProgressTask, fn func(ctx context.Context))

	// InvokeLater schedules fn on the host UI thread.
	InvokeLater(fn func())

	// ShowInfo shows an informational message anchored to anchor.
	ShowInfo(anchor Anchor, message, title string)

	// ShowError shows an error message anchored to anchor.
	ShowError(anchor Anchor, message, title string)

	// LastActionID is the id of the last user-initiated action. May be empty.
	LastActionID() string
}

// BreadcrumbSource is optionally implemented by hosts that keep a history of
// recent user actions.
type BreadcrumbSource interface {
	RecentActions() []Breadcrumb
}
