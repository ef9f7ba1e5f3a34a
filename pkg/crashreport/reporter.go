// reporter.go implements CrashSink: it builds one event per submission, hands
// it to the shared client and reports the outcome to the host.

package crashreport

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// AckPolicy decides when the host is told that a report was submitted.
type AckPolicy int

const (
	// AckOptimistic acknowledges as soon as the event was handed to the
	// client. Delivery failures inside the client are not observed.
	AckOptimistic AckPolicy = iota

	// AckConfirmed flushes the client and acknowledges only after the flush
	// succeeded within the confirm timeout.
	AckConfirmed
)

// Defaults for the host-facing strings.
const (
	DefaultPrivacyNoticeText = `Hereby you agree to <a href="https://www.example.com">this privacy statement</a>`
	DefaultReporterAccount   = "user-id"
	DefaultReportActionText  = "Report to Author"
	DefaultProgressTitle     = "Sending error report"
	DefaultConfirmTimeout    = 5 * time.Second

	messageTitle     = "Error Report"
	messageSubmitted = "Thank you for submitting your report!"
	messageFailed    = "Your report could not be submitted. Please try again later."
)

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithPluginVersion sets the release attached to every event.
func WithPluginVersion(version string) ReporterOption {
	return func(r *Reporter) {
		r.release = version
	}
}

// WithScrubber configures the reporter with a custom scrubber configuration.
func WithScrubber(cfg ScrubberConfig) ReporterOption {
	return func(r *Reporter) {
		r.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing enables scrubbing with production-safe defaults.
func WithDefaultScrubbing() ReporterOption {
	return func(r *Reporter) {
		r.scrubber = NewScrubber(DefaultScrubberConfig())
	}
}

// WithLogger sets the logger used for client failures.
func WithLogger(logger *logrus.Entry) ReporterOption {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records submissions in m.
func WithMetrics(m *Metrics) ReporterOption {
	return func(r *Reporter) {
		r.metrics = m
	}
}

// WithAckPolicy sets the acknowledgement policy. For AckConfirmed, timeout
// bounds the flush; a non-positive timeout uses DefaultConfirmTimeout.
func WithAckPolicy(policy AckPolicy, timeout time.Duration) ReporterOption {
	return func(r *Reporter) {
		r.ack = policy
		if timeout > 0 {
			r.confirmTimeout = timeout
		}
	}
}

// WithSystemState attaches process state to every event.
func WithSystemState() ReporterOption {
	return func(r *Reporter) {
		r.captureSystem = true
	}
}

// WithUserNote attaches the user's note to events as extra.additional_info.
// Without it the note is dropped.
func WithUserNote() ReporterOption {
	return func(r *Reporter) {
		r.attachNote = true
	}
}

// WithPrivacyNoticeText overrides the privacy notice shown by the host.
func WithPrivacyNoticeText(text string) ReporterOption {
	return func(r *Reporter) {
		r.privacyNotice = text
	}
}

// Reporter is the CrashSink handed to the host.
type Reporter struct {
	host           Host
	clients        ClientProvider
	release        string
	scrubber       *Scrubber
	logger         *logrus.Entry
	metrics        *Metrics
	ack            AckPolicy
	confirmTimeout time.Duration
	captureSystem  bool
	attachNote     bool
	privacyNotice  string
	startTime      time.Time
}

var _ CrashSink = (*Reporter)(nil)

// NewReporter creates a Reporter that submits through the client provided by
// clients. clients is typically a process-wide *LazyClient.
func NewReporter(host Host, clients ClientProvider, opts ...ReporterOption) *Reporter {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Reporter{
		host:           host,
		clients:        clients,
		logger:         logrus.NewEntry(discard),
		confirmTimeout: DefaultConfirmTimeout,
		privacyNotice:  DefaultPrivacyNoticeText,
		startTime:      time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PrivacyNoticeText implements CrashSink.
func (r *Reporter) PrivacyNoticeText() string {
	return r.privacyNotice
}

// ReporterAccount implements CrashSink.
func (r *Reporter) ReporterAccount() string {
	return DefaultReporterAccount
}

// ChangeReporterAccount implements CrashSink. Accounts are not supported.
func (r *Reporter) ChangeReporterAccount(anchor Anchor) {}

// ReportActionText implements CrashSink.
func (r *Reporter) ReportActionText() string {
	return DefaultReportActionText
}

// Submit implements CrashSink. The event is built and handed to the client
// under a non-cancelable progress task; the acknowledgement and done run on
// the host UI thread afterwards. The return value only means the submission
// was accepted.
func (r *Reporter) Submit(ctx context.Context, records []Record, note string, anchor Anchor, done func(SubmittedReportInfo)) bool {
	project := r.host.ProjectFor(anchor)
	if project != nil {
		ctx = WithProject(ctx, project)
	}

	task := ProgressTask{
		Title:      DefaultProgressTitle,
		Cancelable: false,
		Project:    project,
	}
	r.host.RunWithProgress(ctx, task, func(ctx context.Context) {
		info := r.deliver(ctx, records, note)
		r.host.InvokeLater(func() {
			r.acknowledge(anchor, info, done)
		})
	})
	return true
}

// BuildEvent builds the scrubbed event for records without sending it.
func (r *Reporter) BuildEvent(records []Record, note string) *Event {
	info := EventInfo{
		Release:      r.release,
		LastActionID: r.host.LastActionID(),
	}
	if r.attachNote {
		info.Note = note
	}
	if src, ok := r.host.(BreadcrumbSource); ok {
		info.Breadcrumbs = src.RecentActions()
	}
	if r.captureSystem {
		info.System = CaptureSystemState(r.startTime)
	}

	event := BuildEvent(records, info)
	if r.scrubber != nil {
		r.scrubber.ScrubEvent(event)
	}
	r.metrics.observeBuild(len(records), len(event.Exceptions))
	return event
}

// deliver builds the event and hands it to the client.
func (r *Reporter) deliver(ctx context.Context, records []Record, note string) SubmittedReportInfo {
	event := r.BuildEvent(records, note)
	ctx = WithEventID(ctx, event.EventID)
	logger := r.logger.WithFields(logrus.Fields{
		"event_id":   event.EventID,
		"exceptions": len(event.Exceptions),
	})

	client, err := r.clients.Client()
	if err == nil && client == nil {
		err = ErrNoClient
	}
	if err != nil {
		logger.WithError(err).Warn("crash report client unavailable")
		return SubmittedReportInfo{Status: StatusFailed}
	}

	id, err := client.Send(ctx, event)
	if err != nil {
		r.metrics.observeSendError()
		logger.WithError(err).Warn("failed to hand crash report to client")
		if r.ack == AckConfirmed {
			return SubmittedReportInfo{Status: StatusFailed, EventID: event.EventID}
		}
	}
	if id == "" {
		id = event.EventID
	}

	if r.ack == AckConfirmed {
		flushCtx, cancel := context.WithTimeout(ctx, r.confirmTimeout)
		defer cancel()
		if err := client.Flush(flushCtx); err != nil {
			r.metrics.observeSendError()
			logger.WithError(err).Warn("crash report delivery not confirmed")
			return SubmittedReportInfo{Status: StatusFailed, EventID: id}
		}
	}

	logger.Debug("crash report handed to client")
	return SubmittedReportInfo{Status: StatusNewIssue, EventID: id}
}

// acknowledge runs on the host UI thread.
func (r *Reporter) acknowledge(anchor Anchor, info SubmittedReportInfo, done func(SubmittedReportInfo)) {
	r.metrics.observeStatus(info.Status)
	if info.Status == StatusFailed {
		r.host.ShowError(anchor, messageFailed, messageTitle)
	} else {
		r.host.ShowInfo(anchor, messageSubmitted, messageTitle)
	}
	if done != nil {
		done(info)
	}
}
