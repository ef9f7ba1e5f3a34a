// Package config loads the crash reporter configuration from flags, the
// environment (CRASHREPORT_*), .env files and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport/clients/sentry"
)

// EnvPrefix prefixes every environment variable read by the configuration.
const EnvPrefix = "CRASHREPORT"

// PlaceholderDSN is the DSN shipped in the defaults. It must be replaced.
const PlaceholderDSN = "your-own-dsn"

// Configuration keys, also used as flag names.
const (
	KeyClient         = "client"
	KeySentryDSN      = "sentry-dsn"
	KeyEnvironment    = "environment"
	KeyRelease        = "release"
	KeyIDEBuild       = "ide-build"
	KeyInAppPrefixes  = "in-app-prefixes"
	KeyCXDBAddr       = "cxdb-addr"
	KeyLogLevel       = "log-level"
	KeyAck            = "ack"
	KeyConfirmTimeout = "confirm-timeout"
	KeyAsyncQueueSize = "async-queue-size"
	KeyVerbose        = "verbose"
)

// ClientType selects the backend client.
type ClientType string

const (
	// ClientTypeSentry delivers events to Sentry.
	ClientTypeSentry ClientType = "SENTRY"
	// ClientTypeStderr prints events, for development.
	ClientTypeStderr ClientType = "STDERR"
	// ClientTypeCXDB archives events in cxdb.
	ClientTypeCXDB ClientType = "CXDB"
	// ClientTypeDryRun discards events.
	ClientTypeDryRun ClientType = "DRY_RUN"
)

// ParseClientType parses a client type case-insensitively.
func ParseClientType(clientTypeStr string) (ClientType, error) {
	clientTypeStrUpper := strings.ToUpper(strings.TrimSpace(clientTypeStr))
	ct := ClientType(clientTypeStrUpper)

	switch ct {
	case ClientTypeSentry, ClientTypeStderr, ClientTypeCXDB, ClientTypeDryRun:
		return ct, nil
	default:
		return "", fmt.Errorf("invalid client type %q", clientTypeStrUpper)
	}
}

// Config is the resolved configuration.
type Config struct {
	Client         ClientType `validate:"required,oneof=SENTRY STDERR CXDB DRY_RUN"`
	SentryDSN      string     `validate:"required_if=Client SENTRY"`
	Environment    string     `validate:"required"`
	Release        string
	IDEBuild       string
	InAppPrefixes  []string      `validate:"dive,required"`
	CXDBAddr       string        `validate:"required_if=Client CXDB"`
	LogLevel       string        `validate:"oneof=trace debug info warn warning error fatal panic"`
	Ack            string        `validate:"oneof=optimistic confirmed"`
	ConfirmTimeout time.Duration `validate:"gte=0"`
	AsyncQueueSize int           `validate:"gte=0"`
	Verbose        bool
}

// AckPolicy returns the acknowledgement policy selected by Ack.
func (c Config) AckPolicy() crashreport.AckPolicy {
	if c.Ack == "confirmed" {
		return crashreport.AckConfirmed
	}
	return crashreport.AckOptimistic
}

var validate = validator.New()

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Client == ClientTypeSentry && c.SentryDSN == PlaceholderDSN {
		return errors.New("invalid configuration: replace the placeholder DSN before shipping")
	}
	return nil
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyClient, string(ClientTypeSentry), `Backend client. Options: "SENTRY", "STDERR", "CXDB" or "DRY_RUN".`)
	fs.String(KeySentryDSN, PlaceholderDSN, "The DSN (client key) of the Sentry project.")
	fs.String(KeyEnvironment, "development", `The environment reported with events. Example: "development", "production".`)
	fs.String(KeyRelease, "", "The plugin version reported as the event release.")
	fs.String(KeyIDEBuild, "", "The host IDE build attached to every event as the ide.build tag.")
	fs.StringSlice(KeyInAppPrefixes, sentry.DefaultInAppPrefixes, "Package prefixes of application frames.")
	fs.String(KeyCXDBAddr, "", "Address of a cxdb server to archive crash events in.")
	fs.String(KeyLogLevel, "info", `The log level. Options: "trace", "debug", "info", "warn", "error".`)
	fs.String(KeyAck, "optimistic", `When to acknowledge a report: "optimistic" after hand-off, "confirmed" after delivery.`)
	fs.Duration(KeyConfirmTimeout, crashreport.DefaultConfirmTimeout, "How long to wait for delivery when --ack=confirmed.")
	fs.Int(KeyAsyncQueueSize, 100, "Queue size of the cxdb archive client.")
	fs.Bool(KeyVerbose, false, "Print stack frames when using the STDERR client.")
}

// NewViper creates a viper instance reading flags, CRASHREPORT_* variables, the
// given .env files (missing files are ignored) and configFile when set.
func NewViper(flags *pflag.FlagSet, configFile string, envFiles ...string) (*viper.Viper, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", file, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	clientType, err := ParseClientType(v.GetString(KeyClient))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Client:         clientType,
		SentryDSN:      v.GetString(KeySentryDSN),
		Environment:    v.GetString(KeyEnvironment),
		Release:        v.GetString(KeyRelease),
		IDEBuild:       v.GetString(KeyIDEBuild),
		InAppPrefixes:  v.GetStringSlice(KeyInAppPrefixes),
		CXDBAddr:       v.GetString(KeyCXDBAddr),
		LogLevel:       strings.ToLower(v.GetString(KeyLogLevel)),
		Ack:            strings.ToLower(v.GetString(KeyAck)),
		ConfirmTimeout: v.GetDuration(KeyConfirmTimeout),
		AsyncQueueSize: v.GetInt(KeyAsyncQueueSize),
		Verbose:        v.GetBool(KeyVerbose),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
