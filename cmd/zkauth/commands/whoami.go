package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/zkauth/cmd/zkauth/cmdutil"
	"github.com/marmos91/zkauth/internal/cli/output"
	"github.com/marmos91/zkauth/internal/cli/timeutil"
	"github.com/marmos91/zkauth/pkg/client/keystore"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current account",
	Long: `Show the account, device, and server of the current context.

This is a purely local view; it does not contact the server.

Examples:
  # Show the current account
  zkauth whoami

  # Show as JSON
  zkauth whoami -o json`,
	RunE: runWhoami,
}

// whoamiInfo is the current-context view for output.
type whoamiInfo struct {
	Context  string `json:"context" yaml:"context"`
	Server   string `json:"server" yaml:"server"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Device   string `json:"device,omitempty" yaml:"device,omitempty"`
	LoggedIn bool   `json:"logged_in" yaml:"logged_in"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
}

func runWhoami(cmd *cobra.Command, args []string) error {
	store, profile, err := cmdutil.LoadStore()
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("no current context set\n\n"+
			"Create an account first:\n"+
			"  zkauth register --server %s", cmdutil.DefaultServer)
	}

	info := whoamiInfo{
		Context:  store.GetCurrentContextName(),
		Server:   profile.Server,
		Username: profile.Username,
		Device:   profile.Device,
		LoggedIn: profile.LoggedIn,
	}
	if profile.Username != "" {
		if _, err := os.Stat(keystore.Path(profile.Username)); err == nil {
			info.KeyFile = keystore.Path(profile.Username)
		}
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, info)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, info)
	default:
		if info.Username == "" {
			fmt.Printf("No account in context %q. Run 'zkauth register' or 'zkauth pair request'.\n", info.Context)
			return nil
		}
		fmt.Printf("Account: %s\n", info.Username)
		fmt.Printf("  Context:  %s\n", info.Context)
		fmt.Printf("  Server:   %s\n", info.Server)
		if info.Device != "" {
			fmt.Printf("  Device:   %s\n", info.Device)
		}
		if info.LoggedIn {
			since := profile.LoggedInAt.Local().Format(timeutil.LocalTimeFormat)
			fmt.Printf("  Status:   Logged in (since %s)\n", since)
		} else {
			fmt.Printf("  Status:   Not logged in\n")
		}
		if info.KeyFile != "" {
			fmt.Printf("  Key file: %s\n", info.KeyFile)
		} else {
			fmt.Printf("  Key file: missing\n")
		}
	}

	return nil
}
