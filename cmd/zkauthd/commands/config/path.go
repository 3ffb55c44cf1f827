package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkauth/pkg/config"
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Long: `Print the path of the configuration file that would be loaded.

Respects the global --config flag; without it, the default location under
$XDG_CONFIG_HOME/zkauth is printed.`,
	RunE: runConfigPath,
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "note: file does not exist yet, run 'zkauthd init' to create it")
	}
	return nil
}
