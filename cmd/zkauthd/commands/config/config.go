// Package config implements configuration management subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage zkauth configuration files.

Use 'zkauthd init' to create a new configuration file.

Subcommands:
  show      Display current configuration
  path      Print the configuration file path
  schema    Generate JSON schema for IDE/validation`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(pathCmd)
	Cmd.AddCommand(schemaCmd)
}
