package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkauth/internal/cli/output"
	"github.com/marmos91/zkauth/internal/cli/prompt"
	"github.com/marmos91/zkauth/pkg/api"
	"github.com/marmos91/zkauth/pkg/apiclient"
	"github.com/marmos91/zkauth/pkg/config"
)

var (
	sessionsOutput   string
	sessionsAPIPort  int
	sessionsUsername string
	sessionsPassword string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List live client connections",
	Long: `List the connections currently held by a running server.

The list comes from the admin HTTP API and includes both connections that
are still mid-handshake and sessions that completed authentication. The
API requires an admin login; the password is prompted for unless given
with --password.

Examples:
  # List live sessions
  zkauthd sessions

  # Against a custom API port, as JSON
  zkauthd sessions --api-port 9440 --output json`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsAPIPort, "api-port", 8440, "API server port")
	sessionsCmd.Flags().StringVarP(&sessionsUsername, "username", "u", "", "Admin username (default: from config)")
	sessionsCmd.Flags().StringVar(&sessionsPassword, "password", "", "Admin password (prompted if not given)")
	sessionsCmd.Flags().StringVarP(&sessionsOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runSessions(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(sessionsOutput)
	if err != nil {
		return err
	}

	username := sessionsUsername
	if username == "" {
		// Best effort: pick up the admin username from the server config.
		if cfg, err := config.Load(GetConfigFile()); err == nil {
			username = cfg.Admin.Username
		}
	}
	if username == "" {
		username = "admin"
	}

	password := sessionsPassword
	if password == "" {
		password, err = prompt.Password(fmt.Sprintf("Password for %s", username))
		if err != nil {
			if prompt.IsAborted(err) {
				fmt.Println("\nAborted.")
				return nil
			}
			return err
		}
	}

	client := apiclient.New(apiBaseURL(sessionsAPIPort))
	tokens, err := client.Login(username, password)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) {
			if apiErr.IsUnavailable() {
				return fmt.Errorf("admin API is disabled: set %s on the server and restart", api.EnvJWTSecret)
			}
			if apiErr.IsAuthError() {
				return fmt.Errorf("login failed: invalid admin credentials for %q", username)
			}
		}
		return fmt.Errorf("cannot reach the admin API on port %d: %w", sessionsAPIPort, err)
	}

	sessions, err := client.WithToken(tokens.AccessToken).Sessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, sessions)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, sessions)
	}

	if len(sessions) == 0 {
		fmt.Println("No live connections")
		return nil
	}

	table := output.NewTableData("ID", "REMOTE", "ACCOUNT", "DEVICE", "CONNECTED", "LOGGED IN")
	for _, s := range sessions {
		account := "-"
		device := "-"
		logged := "-"
		if s.Authenticated() {
			account = s.Username
			device = s.Device
			if s.LoginTime != nil {
				logged = s.LoginTime.Local().Format(time.TimeOnly)
			}
		}
		table.AddRow(
			s.ID,
			s.RemoteAddr,
			account,
			device,
			s.ConnectedAt.Local().Format(time.TimeOnly),
			logged,
		)
	}
	return output.PrintTable(os.Stdout, table)
}
