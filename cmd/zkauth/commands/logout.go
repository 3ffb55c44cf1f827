package commands

import (
	"fmt"

	"github.com/marmos91/zkauth/cmd/zkauth/cmdutil"
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out from the server",
	Long: `Mark this device as logged out on the server and in the current context.

The key file and the context configuration are kept, so 'zkauth login' works
again without re-enrolling.

Examples:
  # Logout from current context
  zkauth logout`,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	store, profile, err := cmdutil.LoadStore()
	if err != nil {
		return err
	}
	if profile == nil || !profile.HasAccount() {
		return fmt.Errorf("not logged in - no current context")
	}

	contextName := store.GetCurrentContextName()
	if !profile.LoggedIn {
		fmt.Printf("Already logged out from context: %s\n", contextName)
		return nil
	}

	// The logout has to be proven like any other operation, so this round
	// trips through authentication first.
	c, username, err := cmdutil.AuthenticatedClient(cmd.Context(), "")
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := c.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	if err := store.ClearCurrentContext(); err != nil {
		return fmt.Errorf("failed to update context: %w", err)
	}

	fmt.Printf("Logged out %s from context: %s\n", username, contextName)
	return nil
}
