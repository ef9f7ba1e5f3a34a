// metrics.go exposes Prometheus counters for submissions.

package crashreport

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "crashreport"

// Metrics counts submissions and their content. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Submissions    *prometheus.CounterVec
	Exceptions     prometheus.Counter
	SkippedRecords prometheus.Counter
	SendErrors     prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "submissions_total",
			Help:      "Crash report submissions by reported status.",
		}, []string{"status"}),
		Exceptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exceptions_total",
			Help:      "Exceptions extracted from crash records.",
		}),
		SkippedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "skipped_records_total",
			Help:      "Crash records without a recoverable cause.",
		}),
		SendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "send_errors_total",
			Help:      "Hand-off or flush failures reported by the backend client.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Submissions, m.Exceptions, m.SkippedRecords, m.SendErrors)
	}
	return m
}

func (m *Metrics) observeBuild(records, exceptions int) {
	if m == nil {
		return
	}
	m.Exceptions.Add(float64(exceptions))
	if skipped := records - exceptions; skipped > 0 {
		m.SkippedRecords.Add(float64(skipped))
	}
}

func (m *Metrics) observeStatus(status SubmissionStatus) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) observeSendError() {
	if m == nil {
		return
	}
	m.SendErrors.Inc()
}
