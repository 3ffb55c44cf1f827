package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkauth/internal/cli/output"
	"github.com/marmos91/zkauth/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the current zkauth configuration.

The output is the effective configuration after defaults and environment
variables are applied. By default outputs YAML format.

Examples:
  # Show effective config as YAML
  zkauthd config show

  # Show as JSON
  zkauthd config show --output json

  # Show specific config file
  zkauthd config show --config /etc/zkauth/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}
