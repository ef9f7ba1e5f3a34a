// Package crashreport forwards plugin crashes reported by a host IDE to an
// error-tracking backend.
//
// The host calls into a CrashSink when a plugin crash is logged. The Reporter
// implementation flattens the host's crash records into a normalized Event and
// hands it to a single, lazily constructed backend Client shared by the whole
// process.
//
// # Core Components
//
//   - Record / CausedRecord: host-supplied crash records; only records carrying
//     their original cause contribute exceptions
//   - Event: the normalized, single-use backend event
//   - Client: destination for events (sentry, stderr, cxdb, async, multi, noop)
//   - LazyClient: exactly-once construction of the process-wide Client
//   - Reporter: the CrashSink the host submits to
//
// # Quick Start
//
//	clients := crashreport.NewLazyClient(func() (crashreport.Client, error) {
//	    return sentry.NewClient(sentry.Config{DSN: dsn, IDEBuild: build})
//	})
//	reporter := crashreport.NewReporter(host, clients,
//	    crashreport.WithPluginVersion("1.4.2"),
//	    crashreport.WithDefaultScrubbing(),
//	)
//	reporter.Submit(ctx, records, note, anchor, func(info crashreport.SubmittedReportInfo) {
//	    // runs on the host UI thread
//	})
//
// # Design Principles
//
//   - The reporter never fails the host: client errors are logged, the
//     completion callback always fires exactly once
//   - Records without a recoverable cause are skipped, not reported as errors
//   - The host name is never sent
package crashreport
