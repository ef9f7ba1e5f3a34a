package config

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"

	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport/clients/async"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport/clients/cxdb"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport/clients/multi"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport/clients/noop"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport/clients/sentry"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport/clients/stderr"
)

// cxdbClientTag identifies the reporter's cxdb sessions.
const cxdbClientTag = "crashreport"

// dialAttempts bounds the cxdb connection retries.
const dialAttempts = 3

// ArchiveDialer connects to a cxdb server.
type ArchiveDialer func(ctx context.Context, addr string) (cxdb.CXDBClient, func(), error)

// DialCXDB connects to addr, retrying transient failures.
func DialCXDB(ctx context.Context, addr string) (cxdb.CXDBClient, func(), error) {
	client, err := retry.DoWithData(
		func() (*cxdbclient.Client, error) {
			return cxdbclient.Dial(addr, cxdbclient.WithClientTag(cxdbClientTag))
		},
		retry.Context(ctx),
		retry.Attempts(dialAttempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to cxdb at %s: %w", addr, err)
	}
	return client, func() { client.Close() }, nil
}

// ClientFactoryOption configures NewClientFactory.
type ClientFactoryOption func(*clientFactory)

// WithArchiveDialer replaces DialCXDB.
func WithArchiveDialer(dial ArchiveDialer) ClientFactoryOption {
	return func(f *clientFactory) {
		f.dial = dial
	}
}

// WithLogger sets the logger of the built clients.
func WithLogger(logger *logrus.Entry) ClientFactoryOption {
	return func(f *clientFactory) {
		f.logger = logger
	}
}

type clientFactory struct {
	cfg    Config
	dial   ArchiveDialer
	logger *logrus.Entry
}

// NewClientFactory returns the factory of the process-wide client described
// by cfg, meant for crashreport.NewLazyClient.
//
// A SENTRY client is fanned out to a cxdb archive when CXDBAddr is set.
func NewClientFactory(ctx context.Context, cfg Config, opts ...ClientFactoryOption) crashreport.ClientFactory {
	f := &clientFactory{
		cfg:    cfg,
		dial:   DialCXDB,
		logger: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(f)
	}

	return func() (crashreport.Client, error) {
		return f.build(ctx)
	}
}

func (f *clientFactory) build(ctx context.Context) (crashreport.Client, error) {
	f.logger.Infof("Using %q crash report client", f.cfg.Client)

	switch f.cfg.Client {
	case ClientTypeSentry:
		client, err := sentry.NewClient(sentry.Config{
			DSN:           f.cfg.SentryDSN,
			Environment:   f.cfg.Environment,
			IDEBuild:      f.cfg.IDEBuild,
			InAppPrefixes: f.cfg.InAppPrefixes,
		})
		if err != nil {
			return nil, err
		}
		if f.cfg.CXDBAddr == "" {
			return client, nil
		}
		archive, err := f.archive(ctx)
		if err != nil {
			f.logger.WithError(err).Warn("crash archive disabled")
			return client, nil
		}
		return multi.NewMultiClient(client, archive), nil

	case ClientTypeStderr:
		var opts []stderr.StderrClientOption
		if f.cfg.Verbose {
			opts = append(opts, stderr.WithVerbose())
		}
		return stderr.NewStderrClient(opts...), nil

	case ClientTypeCXDB:
		return f.archive(ctx)

	case ClientTypeDryRun:
		return noop.NewNoopClient(), nil

	default:
		return nil, fmt.Errorf("unknown client type: %q", f.cfg.Client)
	}
}

// archive builds the asynchronous cxdb client. Closing it closes the connection.
func (f *clientFactory) archive(ctx context.Context) (crashreport.Client, error) {
	conn, closeConn, err := f.dial(ctx, f.cfg.CXDBAddr)
	if err != nil {
		return nil, err
	}

	logger := f.logger.WithField("cxdb_addr", f.cfg.CXDBAddr)
	client := async.NewAsyncClient(
		cxdb.NewCXDBClient(conn, cxdb.WithClientTag(cxdbClientTag)),
		async.WithQueueSize(f.cfg.AsyncQueueSize),
		async.WithOnDropped(func(count int) {
			logger.Warnf("crash archive queue full, dropped %d event(s)", count)
		}),
		async.WithOnError(func(event *crashreport.Event, err error) {
			logger.WithError(err).WithField("event_id", event.EventID).Warn("archiving crash event")
		}),
	)
	return &closingClient{Client: client, closeConn: closeConn}, nil
}

type closingClient struct {
	crashreport.Client
	closeConn func()
}

func (c *closingClient) Close() error {
	err := c.Client.Close()
	if c.closeConn != nil {
		c.closeConn()
	}
	return err
}
