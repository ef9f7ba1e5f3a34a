package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/strongdm/plugin-crash-reporter/internal/config"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport/host/headless"
)

// ErrNotSubmitted is returned when the reporter acknowledged a failure.
var ErrNotSubmitted = errors.New("crash report was not submitted")

// SubmitCommand submits a crash records file.
type SubmitCommand struct {
	File    string
	Note    string
	Actions []string
}

// Command builds the cobra command.
func (c *SubmitCommand) Command(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit crash records to the configured client",
		Example: `  crashreport submit --file crashes.json --note "clicked refactor" --client sentry --sentry-dsn "$DSN"
  cat crashes.json | crashreport submit --file - --client stderr --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.viper)
			if err != nil {
				return err
			}
			return c.Run(cmd.Context(), cfg, opts.logger, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&c.File, "file", "", `JSON file with crash records, or "-" for stdin.`)
	cmd.Flags().StringVar(&c.Note, "note", "", "Additional information from the user.")
	cmd.Flags().StringSliceVar(&c.Actions, "action", nil, "User action ids leading to the crash, oldest first.")
	return cmd
}

// Run submits the records and waits for the acknowledgement.
func (c *SubmitCommand) Run(ctx context.Context, cfg config.Config, logger *logrus.Entry, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	records, err := readRecordsFile(c.File)
	if err != nil {
		return err
	}

	host := headless.New(headless.WithLogger(logger))
	defer host.Close()
	for _, action := range c.Actions {
		host.RecordAction(action)
	}

	clients := crashreport.NewLazyClient(config.NewClientFactory(ctx, cfg, config.WithLogger(logger)))
	defer func() {
		if err := clients.Close(); err != nil && !errors.Is(err, crashreport.ErrClientClosed) {
			logger.WithError(err).Warn("closing crash report client")
		}
	}()

	registry := prometheus.NewRegistry()
	reporter := crashreport.NewReporter(host, clients, reporterOptions(cfg, logger, crashreport.NewMetrics(registry))...)

	result := make(chan crashreport.SubmittedReportInfo, 1)
	reporter.Submit(ctx, records, c.Note, c.File, func(info crashreport.SubmittedReportInfo) {
		result <- info
	})
	if err := host.Sync(ctx); err != nil {
		return err
	}
	info := <-result

	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout(cfg))
	defer cancel()
	if err := clients.Flush(flushCtx); err != nil {
		logger.WithError(err).Warn("flushing crash report client")
	}
	logMetrics(logger, registry)

	if _, err := fmt.Fprintf(out, "%s %s\n", info.Status, info.EventID); err != nil {
		return err
	}
	if info.Status == crashreport.StatusFailed {
		return ErrNotSubmitted
	}
	return nil
}

func reporterOptions(cfg config.Config, logger *logrus.Entry, metrics *crashreport.Metrics) []crashreport.ReporterOption {
	return []crashreport.ReporterOption{
		crashreport.WithPluginVersion(cfg.Release),
		crashreport.WithDefaultScrubbing(),
		crashreport.WithLogger(logger),
		crashreport.WithMetrics(metrics),
		crashreport.WithAckPolicy(cfg.AckPolicy(), cfg.ConfirmTimeout),
		crashreport.WithSystemState(),
		crashreport.WithUserNote(),
	}
}

func flushTimeout(cfg config.Config) time.Duration {
	if cfg.ConfirmTimeout > 0 {
		return cfg.ConfirmTimeout
	}
	return crashreport.DefaultConfirmTimeout
}

// logMetrics writes the submission counters at debug level.
func logMetrics(logger *logrus.Entry, gatherer prometheus.Gatherer) {
	families, err := gatherer.Gather()
	if err != nil {
		logger.WithError(err).Debug("gathering metrics")
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := logrus.Fields{"metric": mf.GetName(), "value": m.GetCounter().GetValue()}
			for _, label := range m.GetLabel() {
				fields[label.GetName()] = label.GetValue()
			}
			logger.WithFields(fields).Debug("metric")
		}
	}
}
