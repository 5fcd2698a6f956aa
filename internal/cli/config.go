package cli

import (
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/brick/internal/config"
	"github.com/shinji-kodama/brick/internal/model"
)

// configCommand creates the "config" command, which prints the effective
// configuration (defaults, project file, .env and BRICK_* variables
// merged) as YAML.
func (a *app) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration as YAML.

The configuration is merged from the built-in defaults, the first of
brick.config.json, brick.config.yaml or brick.config.yml found in the
project, the project's .env file and BRICK_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runConfig()
		},
	}
}

func (a *app) runConfig() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	out, err := config.Marshal(cfg)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "cannot print the configuration", err)
	}
	a.printer.Raw(string(out))
	return nil
}
