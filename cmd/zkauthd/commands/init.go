package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkauth/internal/cli/prompt"
	"github.com/marmos91/zkauth/pkg/api"
	"github.com/marmos91/zkauth/pkg/api/auth"
	"github.com/marmos91/zkauth/pkg/config"
)

var (
	initForce      bool
	initNoPassword bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file",
	Long: `Initialize a zkauth configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/zkauth/config.yaml.
Use --config to specify a custom path.

init prompts for an admin password used by the HTTP API login. The password
is stored as a bcrypt hash; skip the prompt with --no-password to leave the
admin login disabled.

Examples:
  # Initialize with default location
  zkauthd init

  # Initialize with custom path
  zkauthd init --config /etc/zkauth/config.yaml

  # Force overwrite existing config
  zkauthd init --force

  # Non-interactive (no admin credential)
  zkauthd init --no-password`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVar(&initNoPassword, "no-password", false, "Skip the admin password prompt")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	var passwordHash string
	if !initNoPassword {
		fmt.Println("Choose an admin password for the HTTP API (min 8 characters).")
		password, err := prompt.PasswordWithConfirmation("Admin password", "Confirm admin password", auth.MinPasswordLength)
		if err != nil {
			if prompt.IsAborted(err) {
				return fmt.Errorf("init cancelled")
			}
			return fmt.Errorf("failed to read admin password: %w", err)
		}

		passwordHash, err = auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
	}

	if err := config.InitConfigWithAdminHash(configPath, initForce, passwordHash); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: zkauthd start")
	fmt.Printf("  3. Or specify custom config: zkauthd start --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  A random JWT secret has been generated for development use.")
	fmt.Println("  For production, generate a secure secret and use an environment variable:")
	fmt.Println("    # Generates a 64-character hex string (32 bytes of entropy)")
	fmt.Printf("    export %s=$(openssl rand -hex 32)\n", api.EnvJWTSecret)

	return nil
}
