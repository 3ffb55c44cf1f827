package pair

import (
	"fmt"

	"github.com/marmos91/zkauth/cmd/zkauth/cmdutil"
	"github.com/spf13/cobra"
)

var approveUsername string

var approveCmd = &cobra.Command{
	Use:   "approve <token>",
	Short: "Approve a pairing token from an enrolled device",
	Long: `Approve a pairing token, enrolling the device that requested it.

Only the account's main device can approve. Read the token back from the
person holding the new device before approving; approval grants that device
full access to the account.

Examples:
  # Approve a pairing token
  zkauth pair approve 550e8400-e29b-41d4-a716-446655440000`,
	Args: cobra.ExactArgs(1),
	RunE: runPairApprove,
}

func init() {
	approveCmd.Flags().StringVarP(&approveUsername, "username", "u", "", "Account name (defaults to the current context)")
}

func runPairApprove(cmd *cobra.Command, args []string) error {
	token := args[0]

	c, username, err := cmdutil.AuthenticatedClient(cmd.Context(), approveUsername)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := c.ConfirmPairing(cmd.Context(), token); err != nil {
		return fmt.Errorf("approval failed: %w", err)
	}

	fmt.Printf("Pairing approved. The new device is now enrolled in %s.\n", username)
	return nil
}
