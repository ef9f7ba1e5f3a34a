package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/strongdm/plugin-crash-reporter/internal/config"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport/clients/noop"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport/host/headless"
)

// PreviewCommand prints the event a submission would send.
type PreviewCommand struct {
	File    string
	Note    string
	Actions []string
	Format  string
}

// Command builds the cobra command.
func (c *PreviewCommand) Command(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the event built from crash records without sending it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// nothing is delivered, so backend settings are not required
			opts.viper.Set(config.KeyClient, string(config.ClientTypeDryRun))
			cfg, err := config.Load(opts.viper)
			if err != nil {
				return err
			}
			return c.Run(cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&c.File, "file", "", `JSON file with crash records, or "-" for stdin.`)
	cmd.Flags().StringVar(&c.Note, "note", "", "Additional information from the user.")
	cmd.Flags().StringSliceVar(&c.Actions, "action", nil, "User action ids leading to the crash, oldest first.")
	cmd.Flags().StringVar(&c.Format, "format", "json", `Output format: "json" or "yaml".`)
	return cmd
}

// Run builds the event and writes it to out.
func (c *PreviewCommand) Run(cfg config.Config, out io.Writer) error {
	records, err := readRecordsFile(c.File)
	if err != nil {
		return err
	}

	host := headless.New()
	defer host.Close()
	for _, action := range c.Actions {
		host.RecordAction(action)
	}

	reporter := crashreport.NewReporter(host, crashreport.StaticClient(noop.NewNoopClient()),
		crashreport.WithPluginVersion(cfg.Release),
		crashreport.WithDefaultScrubbing(),
		crashreport.WithUserNote(),
	)
	event := reporter.BuildEvent(records, c.Note)

	switch c.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(event)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(event); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}
}
