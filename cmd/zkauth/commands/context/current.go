package context

import (
	"fmt"
	"os"

	"github.com/marmos91/zkauth/cmd/zkauth/cmdutil"
	"github.com/marmos91/zkauth/internal/cli/credentials"
	"github.com/marmos91/zkauth/internal/cli/output"
	"github.com/spf13/cobra"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show current context",
	Long: `Display information about the current active context.

Examples:
  # Show current context
  zkauth context current

  # Show as JSON
  zkauth context current --output json`,
	RunE: runContextCurrent,
}

func runContextCurrent(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize context store: %w", err)
	}

	contextName := store.GetCurrentContextName()
	if contextName == "" {
		return fmt.Errorf("no current context set\n\n" +
			"Create one by registering or logging in:\n" +
			"  zkauth register")
	}

	ctx, err := store.GetContext(contextName)
	if err != nil {
		return fmt.Errorf("failed to get context: %w", err)
	}

	info := ContextInfo{
		Name:     contextName,
		Current:  true,
		Server:   ctx.Server,
		Username: ctx.Username,
		Device:   ctx.Device,
		LoggedIn: ctx.LoggedIn,
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
		fmt.Printf("Current context: %s\n", contextName)
		fmt.Printf("  Server:    %s\n", ctx.Server)
		fmt.Printf("  Account:   %s\n", ctx.Username)
		fmt.Printf("  Device:    %s\n", ctx.Device)
		if info.LoggedIn {
			fmt.Printf("  Status:    Logged in\n")
		} else {
			fmt.Printf("  Status:    Not logged in\n")
		}
	}

	return nil
}
