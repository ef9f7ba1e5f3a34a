// Package cli wires the crashreport command line.
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strongdm/plugin-crash-reporter/internal/config"
)

// globalOptions holds what every subcommand needs after flag parsing.
type globalOptions struct {
	Version   string
	GitCommit string

	configFile string
	envFile    string

	viper  *viper.Viper
	logger *logrus.Entry
}

// init loads the configuration sources and the logger.
func (o *globalOptions) init(cmd *cobra.Command) error {
	v, err := config.NewViper(cmd.Root().PersistentFlags(), o.configFile, o.envFile)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(v.GetString(config.KeyLogLevel), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	o.viper = v
	o.logger = logger
	return nil
}

func rootCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "crashreport",
		Short:        "Plugin crash reporter",
		Long:         "crashreport converts plugin crash records into events and submits them to Sentry, stderr or a cxdb archive.",
		Version:      opts.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (yaml, json or toml).")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Env file with CRASHREPORT_* variables. Ignored when missing.")
	config.RegisterFlags(flags)

	return cmd
}

// SetupCLI returns the root command with the subcommands attached.
func SetupCLI(version, gitCommit string) *cobra.Command {
	opts := &globalOptions{Version: version, GitCommit: gitCommit}
	root := rootCmd(opts)

	root.AddCommand((&SubmitCommand{}).Command(opts))
	root.AddCommand((&PreviewCommand{}).Command(opts))
	root.AddCommand(versionCmd(opts))

	return root
}

func versionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			commit := opts.GitCommit
			if commit == "" {
				commit = "unknown"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "crashreport %s (commit %s)\n", opts.Version, commit)
			return err
		},
	}
}
